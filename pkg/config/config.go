package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Gateway  GatewayConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Gateway.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LUVWISH_APP_ENV" required:"true"`
	Port         string `envconfig:"LUVWISH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LUVWISH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUVWISH_LOG_WARN_STACK" default:"false"`
	// EntryPoint is where unauthenticated actors are redirected.
	EntryPoint  string   `envconfig:"LUVWISH_APP_ENTRY_POINT" default:"/"`
	CORSOrigins []string `envconfig:"LUVWISH_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"LUVWISH_REDIS_URL"`
	Address      string        `envconfig:"LUVWISH_REDIS_ADDR"`
	Password     string        `envconfig:"LUVWISH_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUVWISH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUVWISH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUVWISH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUVWISH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUVWISH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUVWISH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret string `envconfig:"LUVWISH_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"LUVWISH_JWT_ISSUER" required:"true"`
}

// GatewayConfig points at the remote cart, address and coupon services.
type GatewayConfig struct {
	CartBaseURL    string        `envconfig:"LUVWISH_GATEWAY_CART_URL" required:"true"`
	AddressBaseURL string        `envconfig:"LUVWISH_GATEWAY_ADDRESS_URL"`
	CouponBaseURL  string        `envconfig:"LUVWISH_GATEWAY_COUPON_URL"`
	Timeout        time.Duration `envconfig:"LUVWISH_GATEWAY_TIMEOUT" default:"8s"`

	BreakerMaxRequests      uint32        `envconfig:"LUVWISH_GATEWAY_BREAKER_MAX_REQUESTS" default:"3"`
	BreakerInterval         time.Duration `envconfig:"LUVWISH_GATEWAY_BREAKER_INTERVAL" default:"60s"`
	BreakerOpenTimeout      time.Duration `envconfig:"LUVWISH_GATEWAY_BREAKER_OPEN_TIMEOUT" default:"30s"`
	BreakerFailureThreshold uint32        `envconfig:"LUVWISH_GATEWAY_BREAKER_FAILURES" default:"5"`
}

// AddressURL falls back to the cart service host, which serves addresses in
// the single-backend deployment.
func (g GatewayConfig) AddressURL() string {
	if strings.TrimSpace(g.AddressBaseURL) != "" {
		return g.AddressBaseURL
	}
	return g.CartBaseURL
}

func (g GatewayConfig) CouponURL() string {
	if strings.TrimSpace(g.CouponBaseURL) != "" {
		return g.CouponBaseURL
	}
	return g.CartBaseURL
}

func (g GatewayConfig) validate() error {
	for env, raw := range map[string]string{
		EnvGatewayCartURL:    g.CartBaseURL,
		EnvGatewayAddressURL: g.AddressBaseURL,
		EnvGatewayCouponURL:  g.CouponBaseURL,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute url", env)
		}
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvGatewayTimeout)
	}
	return nil
}

type CheckoutConfig struct {
	ExpressFee     string        `envconfig:"LUVWISH_CHECKOUT_EXPRESS_FEE" default:"99"`
	GuardPolicy    string        `envconfig:"LUVWISH_CHECKOUT_GUARD_POLICY" default:"per_line"`
	GuardBackend   string        `envconfig:"LUVWISH_CHECKOUT_GUARD_BACKEND" default:"memory"`
	GuardLockTTL   time.Duration `envconfig:"LUVWISH_CHECKOUT_GUARD_LOCK_TTL" default:"30s"`
	SessionBackend string        `envconfig:"LUVWISH_CHECKOUT_SESSION_BACKEND" default:"memory"`
	SessionTTL     time.Duration `envconfig:"LUVWISH_CHECKOUT_SESSION_TTL" default:"2h"`
	NoticeDuration time.Duration `envconfig:"LUVWISH_CHECKOUT_NOTICE_DURATION" default:"3s"`
}

func (c CheckoutConfig) validate() error {
	switch strings.ToLower(c.GuardPolicy) {
	case GuardPolicyPerLine, GuardPolicyGlobal:
	default:
		return fmt.Errorf("%s must be %s or %s", EnvGuardPolicy, GuardPolicyPerLine, GuardPolicyGlobal)
	}
	for env, backend := range map[string]string{
		EnvGuardBackend:   c.GuardBackend,
		EnvSessionBackend: c.SessionBackend,
	} {
		switch strings.ToLower(backend) {
		case BackendMemory, BackendRedis:
		default:
			return fmt.Errorf("%s must be %s or %s", env, BackendMemory, BackendRedis)
		}
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvSessionTTL)
	}
	return nil
}

// UsesRedis reports whether any checkout component needs a Redis connection.
func (c CheckoutConfig) UsesRedis() bool {
	return strings.EqualFold(c.GuardBackend, BackendRedis) || strings.EqualFold(c.SessionBackend, BackendRedis)
}
