package config

import (
	"fmt"
	"time"
)

// EngineConfig 引擎框架配置（对外导出）
type EngineConfig struct {
	Lazyflow struct {
		General struct {
			InstanceName string `yaml:"instance_name" validate:"required"`
			LogLevel     string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
			Env          string `yaml:"env"`
		} `yaml:"general"`
		Storage struct {
			Database struct {
				Type            string        `yaml:"type" validate:"required,oneof=sqlite sqlite3 postgres postgresql mysql"`
				DSN             string        `yaml:"dsn" validate:"required"`
				MaxOpenConns    int           `yaml:"max_open_conns" validate:"gt=0"`
				MaxIdleConns    int           `yaml:"max_idle_conns" validate:"gte=0"`
				ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
				ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
			} `yaml:"database"`
			// History 是否记录运行历史
			History bool `yaml:"history"`
		} `yaml:"storage"`
		Execution struct {
			WorkerConcurrency int           `yaml:"worker_concurrency" validate:"gt=0"`
			RunTimeout        time.Duration `yaml:"run_timeout" validate:"gte=0"` // 0 表示不限制
		} `yaml:"execution"`
		Server struct {
			Host string `yaml:"host"`
			Port int    `yaml:"port" validate:"gt=0,lte=65535"`
		} `yaml:"server"`
		Pipelines struct {
			// Dir 服务模式下加载的Pipeline定义目录
			Dir string `yaml:"dir"`
		} `yaml:"pipelines"`
		Notifications struct {
			Email struct {
				Enabled  bool     `yaml:"enabled"`
				SMTPHost string   `yaml:"smtp_host" validate:"required_if=Enabled true"`
				SMTPPort int      `yaml:"smtp_port" validate:"gte=0,lte=65535"`
				Username string   `yaml:"username"`
				Password string   `yaml:"password"`
				From     string   `yaml:"from" validate:"required_if=Enabled true,omitempty,email"`
				To       []string `yaml:"to" validate:"required_if=Enabled true,dive,email"`
				// On 触发邮件的事件，默认只在运行失败时发送
				On []string `yaml:"on" validate:"dive,oneof=run.started run.succeeded run.failed run.cancelled node.failed"`
			} `yaml:"email"`
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"notifications"`
	} `yaml:"lazyflow"`
}

// DefaultEngineConfig 返回应用了默认值的配置
func DefaultEngineConfig() *EngineConfig {
	cfg := &EngineConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// GetDatabaseType 获取数据库类型
func (c *EngineConfig) GetDatabaseType() string {
	return c.Lazyflow.Storage.Database.Type
}

// GetDatabaseDSN 获取数据库DSN
func (c *EngineConfig) GetDatabaseDSN() string {
	return c.Lazyflow.Storage.Database.DSN
}

// GetWorkerConcurrency 获取Worker并发数
func (c *EngineConfig) GetWorkerConcurrency() int {
	concurrency := c.Lazyflow.Execution.WorkerConcurrency
	if concurrency <= 0 {
		return 1
	}
	return concurrency
}

// GetServerAddr 服务监听地址 host:port
func (c *EngineConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Lazyflow.Server.Host, c.Lazyflow.Server.Port)
}

// IsDebug log_level 为 debug 时打印节点访问日志
func (c *EngineConfig) IsDebug() bool {
	return c.Lazyflow.General.LogLevel == "debug"
}

// ApplyDefaults 应用默认值
func (c *EngineConfig) ApplyDefaults() {
	// General默认值
	if c.Lazyflow.General.InstanceName == "" {
		c.Lazyflow.General.InstanceName = "lazyflow"
	}
	if c.Lazyflow.General.LogLevel == "" {
		c.Lazyflow.General.LogLevel = "info"
	}
	if c.Lazyflow.General.Env == "" {
		c.Lazyflow.General.Env = "dev"
	}

	// Database默认值
	if c.Lazyflow.Storage.Database.Type == "" {
		c.Lazyflow.Storage.Database.Type = "sqlite"
	}
	if c.Lazyflow.Storage.Database.DSN == "" {
		c.Lazyflow.Storage.Database.DSN = "lazyflow.db"
	}
	if c.Lazyflow.Storage.Database.MaxOpenConns <= 0 {
		c.Lazyflow.Storage.Database.MaxOpenConns = 10
	}
	if c.Lazyflow.Storage.Database.MaxIdleConns <= 0 {
		c.Lazyflow.Storage.Database.MaxIdleConns = 5
	}
	if c.Lazyflow.Storage.Database.ConnMaxLifetime <= 0 {
		c.Lazyflow.Storage.Database.ConnMaxLifetime = 2 * time.Hour
	}
	if c.Lazyflow.Storage.Database.ConnMaxIdleTime <= 0 {
		c.Lazyflow.Storage.Database.ConnMaxIdleTime = 1 * time.Hour
	}

	// Execution默认值
	if c.Lazyflow.Execution.WorkerConcurrency <= 0 {
		c.Lazyflow.Execution.WorkerConcurrency = 1
	}

	// Server默认值
	if c.Lazyflow.Server.Port <= 0 {
		c.Lazyflow.Server.Port = 8080
	}
	if c.Lazyflow.Pipelines.Dir == "" {
		c.Lazyflow.Pipelines.Dir = "pipelines"
	}

	// Notifications默认值
	email := &c.Lazyflow.Notifications.Email
	if email.SMTPPort == 0 {
		email.SMTPPort = 25
	}
	if email.Enabled && len(email.On) == 0 {
		email.On = []string{"run.failed"}
	}
	if c.Lazyflow.Notifications.Timeout <= 0 {
		c.Lazyflow.Notifications.Timeout = 30 * time.Second
	}
}
