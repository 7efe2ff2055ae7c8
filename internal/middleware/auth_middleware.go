package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"hrm-server/internal/shared/apperror"
	"hrm-server/internal/shared/contextutil"
	"hrm-server/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthMiddleware validates the HS256 bearer token (or access_token cookie) and
// publishes the principal on the gin context and the request context.
// Issuing tokens belongs to the identity service.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "Token not found")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token expired"
			}
			response.Abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, msg)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "Invalid token claims")
			return
		}

		userID, _ := claims["user_id"].(string)
		orgID, _ := claims["org_id"].(string)
		employeeID, _ := claims["employee_id"].(string)
		role, _ := claims["role"].(string)
		switch {
		case userID == "":
			response.Abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "User ID not found in token")
			return
		case orgID == "":
			response.Abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "Org ID not found in token")
			return
		case employeeID == "":
			response.Abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "Employee ID not found in token")
			return
		}

		c.Set("user_id", userID)
		c.Set("user_id_validated", userID)
		c.Set("employee_id", employeeID)
		c.Set("org_id", orgID)
		c.Set("role", role)

		ctx := contextutil.WithUserID(c.Request.Context(), userID)
		ctx = contextutil.WithPrincipal(ctx, employeeID, orgID)
		if l, ok := contextutil.LoggerFrom(ctx); ok {
			ctx = contextutil.WithLogger(ctx, l.With(
				zap.String("employee_id", employeeID),
				zap.String("org_id", orgID),
			))
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("role")
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		forbidden := apperror.ErrForbidden
		response.Abort(c, forbidden.HTTPStatus, forbidden.Code, forbidden.Message)
	}
}
