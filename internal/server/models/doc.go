// Package models contains the server's persistent entities.
package models
