package middleware

import (
	"os"
	"strings"

	"FaceCrop/pkg/handlerUtil"
	jwtPkg "FaceCrop/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = "JWT_ACCESS_TOKEN_SECRET"
	SubjectKey        = "subject"

	unauthorizedMessage = "Unauthorized, access token invalid or expired"
)

type tokenMiddleware struct {
	enabled bool
}

// newTokenMiddleware enables bearer authentication only when an access token secret is set.
func newTokenMiddleware() *tokenMiddleware {
	return &tokenMiddleware{
		enabled: os.Getenv(AccessTokenSecret) != "",
	}
}

func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	if !m.token.enabled {
		return ctx.Next()
	}

	authHeader := ctx.Get("Authorization")

	if authHeader == "" {
		m.log.WithFields(logrus.Fields{
			"path":      ctx.Path(),
			"client_ip": ctx.IP(),
			"error":     "Authorization header is missing",
		}).Warn("Authorization header check")
		return handlerUtil.New(m.log).HandleUnauthorized(ctx, m.GetRequestID(ctx), unauthorizedMessage)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		m.log.WithFields(logrus.Fields{
			"path":  ctx.Path(),
			"error": "Authorization header format is invalid",
		}).Warn("Authorization header check")
		return handlerUtil.New(m.log).HandleUnauthorized(ctx, m.GetRequestID(ctx), unauthorizedMessage)
	}

	userToken, err := jwtPkg.VerifyTokenHeader(ctx, AccessTokenSecret)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"path":  ctx.Path(),
			"error": err.Error(),
		}).Warn("Token verification failed")
		return handlerUtil.New(m.log).HandleUnauthorized(ctx, m.GetRequestID(ctx), unauthorizedMessage)
	}

	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		m.log.WithFields(logrus.Fields{
			"error": "Invalid token claims",
		}).Warn("Token claims check")
		return handlerUtil.New(m.log).HandleUnauthorized(ctx, m.GetRequestID(ctx), unauthorizedMessage)
	}

	subject, _ := claims.GetSubject()
	ctx.Locals(SubjectKey, subject)

	m.log.WithFields(logrus.Fields{
		"subject": subject,
	}).Debug("Authentication successful")
	return ctx.Next()
}
