package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// timeNow is a test seam for the clock used to issue and validate tokens.
var timeNow = time.Now

// AccessClaims is the decoded payload of an access token.
type AccessClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// UserID parses Subject back into the integer user id. A subject that is not
// a decimal integer yields common.ErrInvalidToken.
func (c *AccessClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, common.ErrInvalidToken
	}
	return id, nil
}

// IssueAccessToken signs an HS256 token for userID valid for ttl from now.
func IssueAccessToken(userID int64, secretKey []byte, ttl time.Duration) (string, error) {
	now := timeNow()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("%w: sign access token: %v", common.ErrorInternal, err)
	}

	return tokenString, nil
}

// DecodeAccessToken verifies tokenString with secretKey and returns its
// claims. Only HS256 is accepted, and exp must be present and in the future.
//
// A bad signature, malformed input and expiry all return
// common.ErrInvalidToken.
func DecodeAccessToken(tokenString string, secretKey []byte) (*AccessClaims, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(timeNow),
	)
	if err != nil || !token.Valid || claims.IssuedAt == nil {
		return nil, common.ErrInvalidToken
	}

	return &AccessClaims{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
