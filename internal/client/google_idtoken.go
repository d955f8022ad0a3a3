package client

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/idtoken"

	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/log"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/model"
)

// IDTokenVerifier delegates validation to Google's own library. Unlike
// OIDCVerifier it enforces the audience hard: a token minted for another
// application is rejected, not logged. GOOGLE_VERIFY_MODE=idtoken selects it.
type IDTokenVerifier struct {
	audiences []string
}

func NewIDTokenVerifier(audiences string) (*IDTokenVerifier, error) {
	auds := splitAudiences(audiences)
	if len(auds) == 0 {
		return nil, fmt.Errorf("google audiences not configured")
	}
	return &IDTokenVerifier{audiences: auds}, nil
}

func (v *IDTokenVerifier) Verify(ctx context.Context, idTok string) (*model.GoogleClaims, error) {
	if strings.TrimSpace(idTok) == "" {
		return nil, ErrInvalidIDToken
	}

	var payload *idtoken.Payload
	var err error
	for _, aud := range v.audiences {
		if payload, err = idtoken.Validate(ctx, idTok, aud); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: email claim missing", ErrInvalidIDToken)
	}
	emailVerified, _ := payload.Claims["email_verified"].(bool)
	givenName, _ := payload.Claims["given_name"].(string)
	familyName, _ := payload.Claims["family_name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	log.L().Debug("google id token verified", zap.String("email", email))

	return &model.GoogleClaims{
		Subject:       payload.Subject,
		Email:         email,
		EmailVerified: emailVerified,
		GivenName:     givenName,
		FamilyName:    familyName,
		Picture:       picture,
	}, nil
}
