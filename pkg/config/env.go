package config

const EnvPrefix = "LUVWISH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	GuardPolicyPerLine = "per_line"
	GuardPolicyGlobal  = "global"
)

const (
	EnvAppEnv            = "LUVWISH_APP_ENV"
	EnvPort              = "LUVWISH_APP_PORT"
	EnvRedisURL          = "LUVWISH_REDIS_URL"
	EnvJWTSecret         = "LUVWISH_JWT_SECRET"
	EnvJWTIssuer         = "LUVWISH_JWT_ISSUER"
	EnvGatewayCartURL    = "LUVWISH_GATEWAY_CART_URL"
	EnvGatewayAddressURL = "LUVWISH_GATEWAY_ADDRESS_URL"
	EnvGatewayCouponURL  = "LUVWISH_GATEWAY_COUPON_URL"
	EnvGatewayTimeout    = "LUVWISH_GATEWAY_TIMEOUT"
	EnvExpressFee        = "LUVWISH_CHECKOUT_EXPRESS_FEE"
	EnvGuardPolicy       = "LUVWISH_CHECKOUT_GUARD_POLICY"
	EnvGuardBackend      = "LUVWISH_CHECKOUT_GUARD_BACKEND"
	EnvSessionBackend    = "LUVWISH_CHECKOUT_SESSION_BACKEND"
	EnvSessionTTL        = "LUVWISH_CHECKOUT_SESSION_TTL"
)
