package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	typAuth "github.com/vihking/whatsapp-integration/internal/auth/types"
	"github.com/vihking/whatsapp-integration/internal/config"
	pkgAuth "github.com/vihking/whatsapp-integration/pkg/auth"
	"github.com/vihking/whatsapp-integration/pkg/log"
	"github.com/vihking/whatsapp-integration/pkg/router"
)

const (
	RoleAdmin = "admin"
	adminName = "Administrador"
)

// Login exchanges the configured admin credentials for a panel token.
type Login struct {
	admin   config.Admin
	ttl     time.Duration
	limiter *rate.Limiter
}

// NewLogin allows a burst of 5 attempts refilled at one every 2 seconds.
func NewLogin(admin config.Admin) *Login {
	return &Login{
		admin:   admin,
		ttl:     pkgAuth.TokenTTL,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
	}
}

func (l *Login) Handle(c *fiber.Ctx) error {
	if !l.limiter.Allow() {
		return router.ResponseTooManyRequests(c, "Muitas tentativas de login. Tente novamente em instantes")
	}

	var req typAuth.RequestLogin
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Falha ao ler o corpo da requisição")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return router.ResponseBadRequest(c, "Email e senha são obrigatórios")
	}

	if l.admin.Email == "" || l.admin.Password == "" {
		return router.ResponseInternalError(c, "Credenciais de administrador não configuradas")
	}

	emailOK := strings.EqualFold(strings.TrimSpace(req.Email), l.admin.Email)
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(l.admin.Password)) == 1
	if !emailOK || !passwordOK {
		log.Print(c).WithField("email", req.Email).Warn("login rejected")
		return router.ResponseUnauthorized(c, "Credenciais inválidas")
	}

	token, err := pkgAuth.GenerateAdminToken(l.admin.Email, RoleAdmin, l.ttl)
	if err != nil {
		return router.ResponseInternalError(c, "Falha ao gerar token: "+err.Error())
	}

	log.Print(c).WithField("email", l.admin.Email).Info("admin logged in")
	return router.ResponseJSON(c, typAuth.ResponseLogin{
		Success:     true,
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(l.ttl.Seconds()),
		User: typAuth.User{
			Email: l.admin.Email,
			Role:  RoleAdmin,
			Name:  adminName,
		},
	})
}
