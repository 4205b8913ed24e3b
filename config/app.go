package config

type App struct {
	Port        string `envconfig:"APP_PORT" default:"8080"`
	Env         string `envconfig:"APP_ENV" default:"dev"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"mais.events"`

	ProviderAPIKey        string `envconfig:"PROVIDER_API_KEY" required:"true"`
	ProviderWebhookSecret string `envconfig:"PROVIDER_WEBHOOK_SECRET" required:"true"`
	ProviderBaseURL       string `envconfig:"PROVIDER_BASE_URL" default:"https://api.payprovider.example"`

	CalendarBaseURL string `envconfig:"CALENDAR_BASE_URL"`

	LockWaitMS        int `envconfig:"LOCK_WAIT_MS" default:"3000"`
	IdempotencyTTLHrs int `envconfig:"IDEMPOTENCY_TTL_HOURS" default:"24"`
}
