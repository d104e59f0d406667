package config

import (
	"fmt"
	"time"
)

// BaseConfig is the root configuration document for identityd. Values load
// from config/app.json with environment overrides.
type BaseConfig struct {
	App         App         `json:"app" koanf:"app"`
	Server      Server      `json:"server" koanf:"server"`
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
	SMTP        SMTP        `json:"smtp" koanf:"smtp"`
	Storage     Storage     `json:"storage" koanf:"storage"`
}

func (a BaseConfig) Validate() error {
	if a.Auth.SigningKey == "" {
		return fmt.Errorf("config: auth.signing_key is required")
	}
	return nil
}

func (a *BaseConfig) GetApp() *App                 { return &a.App }
func (a *BaseConfig) GetServer() *Server           { return &a.Server }
func (a *BaseConfig) GetAuth() *Auth               { return &a.Auth }
func (a *BaseConfig) GetPersistence() *Persistence { return &a.Persistence }
func (a *BaseConfig) GetSMTP() *SMTP               { return &a.SMTP }
func (a *BaseConfig) GetStorage() *Storage         { return &a.Storage }

type App struct {
	Name    string `json:"name" koanf:"name"`
	BaseURL string `json:"base_url" koanf:"base_url"`
	Debug   bool   `json:"debug" koanf:"debug"`
}

func (a App) GetName() string    { return a.Name }
func (a App) GetBaseURL() string { return a.BaseURL }
func (a App) GetDebug() bool     { return a.Debug }

type Server struct {
	Addr string `json:"addr" koanf:"addr"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8572"
	}
	return s.Addr
}

// Auth satisfies the auth package Config interface.
type Auth struct {
	SigningKey                   string   `json:"signing_key" koanf:"signing_key"`
	Issuer                       string   `json:"issuer" koanf:"issuer"`
	Audience                     []string `json:"audience" koanf:"audience"`
	AccessTokenTTLExpression     string   `json:"access_token_ttl" koanf:"access_token_ttl"`
	SessionDurationHours         int      `json:"session_duration_hours" koanf:"session_duration_hours"`
	ExtendedSessionDurationHours int      `json:"extended_session_duration_hours" koanf:"extended_session_duration_hours"`
	TokenLookup                  string   `json:"token_lookup" koanf:"token_lookup"`
	AuthScheme                   string   `json:"auth_scheme" koanf:"auth_scheme"`
	ContextKey                   string   `json:"context_key" koanf:"context_key"`
}

func (a *Auth) GetSigningKey() string { return a.SigningKey }

func (a *Auth) GetIssuer() string { return a.Issuer }

func (a *Auth) GetAudience() []string { return a.Audience }

func (a *Auth) GetAccessTokenTTL() time.Duration {
	if a.AccessTokenTTLExpression == "" {
		return 15 * time.Minute
	}
	dur, err := time.ParseDuration(a.AccessTokenTTLExpression)
	if err != nil {
		panic(fmt.Sprintf("unable to parse time: expr %s", a.AccessTokenTTLExpression))
	}
	return dur
}

func (a *Auth) GetSessionDuration() time.Duration {
	if a.SessionDurationHours == 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.SessionDurationHours) * time.Hour
}

func (a *Auth) GetExtendedSessionDuration() time.Duration {
	if a.ExtendedSessionDurationHours == 0 {
		return 720 * time.Hour
	}
	return time.Duration(a.ExtendedSessionDurationHours) * time.Hour
}

func (a *Auth) GetTokenLookup() string {
	if a.TokenLookup == "" {
		return "header:Authorization"
	}
	return a.TokenLookup
}

func (a *Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

func (a *Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "session"
	}
	return a.ContextKey
}

type Persistence struct {
	Driver                string `json:"driver" koanf:"driver"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Debug                 bool   `json:"debug" koanf:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p *Persistence) GetDriver() string { return p.Driver }

func (p *Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return p.DSN
}

func (p *Persistence) GetDebug() bool { return p.Debug }

func (p *Persistence) GetServer() string { return p.GetDSN() }

func (p *Persistence) GetOtelIdentifier() string { return "" }

func (p *Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression))
	}
	return dur
}

type SMTP struct {
	Enabled  bool   `json:"enabled" koanf:"enabled"`
	Host     string `json:"host" koanf:"host"`
	Port     int    `json:"port" koanf:"port"`
	Username string `json:"username" koanf:"username"`
	Password string `json:"password" koanf:"password"`
	From     string `json:"from" koanf:"from"`
}

type Storage struct {
	// Provider is "s3" or "local".
	Provider      string `json:"provider" koanf:"provider"`
	Region        string `json:"region" koanf:"region"`
	AccessKey     string `json:"access_key" koanf:"access_key"`
	SecretKey     string `json:"secret_key" koanf:"secret_key"`
	Bucket        string `json:"bucket" koanf:"bucket"`
	BaseEndpoint  string `json:"base_endpoint" koanf:"base_endpoint"`
	PublicBaseURL string `json:"public_base_url" koanf:"public_base_url"`
	LocalDir      string `json:"local_dir" koanf:"local_dir"`
}
