// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tokenstore

import (
	"fmt"

	"github.com/gogama/pipex/auth"
	"github.com/golang-jwt/jwt/v5"
)

// FromJWT returns a token record for a JWT. The expiry is read from
// the "exp" claim and the remaining claims are copied into Extra.
//
// The signature is not verified: the client only needs to know when
// to refresh, and verifying the credential is the server's job.
func FromJWT(token string) (auth.TokenRecord, error) {
	meta, err := JWTMeta(token)
	if err != nil {
		return auth.TokenRecord{}, err
	}
	return auth.TokenRecord{Token: token, Meta: meta}, nil
}

// JWTMeta extracts token metadata from the claims of an unverified JWT.
func JWTMeta(token string) (auth.TokenMeta, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return auth.TokenMeta{}, fmt.Errorf("pipex/tokenstore: parse JWT: %w", err)
	}
	var meta auth.TokenMeta
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return auth.TokenMeta{}, fmt.Errorf("pipex/tokenstore: JWT exp claim: %w", err)
	}
	if exp != nil {
		meta.ExpiresAt = exp.Time
	}
	for k, v := range claims {
		if k == "exp" {
			continue
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string]interface{}, len(claims))
		}
		meta.Extra[k] = v
	}
	return meta, nil
}
