package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// Origins allowed to call the API with credentials.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

type AuthEnv struct {
	AdminPassword string        `envconfig:"ADMIN_PASSWORD" required:"true"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".missionctl/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"missionctl/"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
}

type DatabaseEnv struct {
	AutomationDBPath string `envconfig:"AUTOMATION_DB_PATH" default:".missionctl/automation.db"`
	// When set, tasks are stored in Postgres instead of the document storage.
	TaskDatabaseURL string `envconfig:"TASK_DATABASE_URL"`
}

type WorkspaceEnv struct {
	WorkspacePath string `envconfig:"WORKSPACE_PATH" default:"/workspace"`
	VaultPath     string `envconfig:"VAULT_PATH" default:"/root/.openclaw/workspace/notes"`
}

type SubagentEnv struct {
	ToolsEndpoint string        `envconfig:"OPENCLAW_TOOLS_ENDPOINT"`
	ToolsToken    string        `envconfig:"OPENCLAW_TOOLS_TOKEN"`
	Timeout       time.Duration `envconfig:"SUBAGENT_TIMEOUT" default:"15s"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:admin@localhost"`
}

type Env struct {
	BaseEnv
	AuthEnv
	StorageEnv
	DatabaseEnv
	WorkspaceEnv
	SubagentEnv
	VAPIDEnv
}

const namespace = "MISSIONCTL"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func AuthEnvFromEnv(env *Env) *AuthEnv {
	return &env.AuthEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func SubagentEnvFromEnv(env *Env) *SubagentEnv {
	return &env.SubagentEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}
