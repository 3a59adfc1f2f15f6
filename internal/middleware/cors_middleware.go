package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"favorx-backend-go/internal/config"
)

// CORSMiddleware configures Cross-Origin Resource Sharing for the API.
// CLIENT_URL may hold a comma-separated list of origins; when it is empty
// every origin is allowed without credentials, which suits the mobile client.
func CORSMiddleware(appConfig *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", RequestIDHeader},
		ExposeHeaders:   []string{"Content-Length", RequestIDHeader},
		MaxAge:          12 * time.Hour,
		AllowWebSockets: true,
	}

	origins := allowedOrigins(appConfig)
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	return cors.New(corsConfig)
}

func allowedOrigins(appConfig *config.Config) []string {
	if appConfig == nil {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(appConfig.ClientURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
