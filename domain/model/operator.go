package model

import "github.com/golang-jwt/jwt"

// OperatorClaims are the JWT claims carried by ops API bearer tokens.
type OperatorClaims struct {
	Name string `json:"name"`
	jwt.StandardClaims
}
