package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Bootstrap 服务启动配置，对应 configs/config.yaml
type Bootstrap struct {
	Server     *Server     `json:"server"`
	Data       *Data       `json:"data"`
	Auth       *Auth       `json:"auth"`
	Payment    *Payment    `json:"payment"`
	Mail       *Mail       `json:"mail"`
	Loyalty    *Loyalty    `json:"loyalty"`
	Membership *Membership `json:"membership"`
	Entry      *Entry      `json:"entry"`
	Workout    *Workout    `json:"workout"`
	Trace      *Trace      `json:"trace"`
}

// Server HTTP 服务配置
type Server struct {
	Http *Server_HTTP `json:"http"`
}

// Server_HTTP HTTP 监听配置
type Server_HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Data 数据层配置
type Data struct {
	Database *Data_Database `json:"database"`
	Redis    *Data_Redis    `json:"redis"`
}

// Data_Database 关系数据库配置，driver 取值 mysql 或 postgres
type Data_Database struct {
	Driver       string   `json:"driver"`
	Source       string   `json:"source"`
	MaxOpenConns int      `json:"max_open_conns"`
	MaxIdleConns int      `json:"max_idle_conns"`
	ConnMaxLife  Duration `json:"conn_max_life"`
	AutoMigrate  bool     `json:"auto_migrate"`
}

// Data_Redis Redis 配置
type Data_Redis struct {
	Addr         string   `json:"addr"`
	Password     string   `json:"password"`
	DB           int      `json:"db"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

// Auth JWT 校验配置
type Auth struct {
	JwtSecret string `json:"jwt_secret"`
}

// Payment 支付网关配置
type Payment struct {
	ServerKey  string `json:"server_key"`
	Production bool   `json:"production"`
	Acquirer   string `json:"acquirer"`
	Currency   string `json:"currency"`
}

// Mail 邮件发送配置
type Mail struct {
	SendgridApiKey string `json:"sendgrid_api_key"`
	FromName       string `json:"from_name"`
	FromAddress    string `json:"from_address"`
}

// Loyalty 积分累计配置，EarnEvery 为 0 时关闭现金消费送积分
type Loyalty struct {
	EarnEvery int64 `json:"earn_every"`
}

// Membership 会员状态巡检配置
type Membership struct {
	SweepInterval Duration `json:"sweep_interval"`
}

// Entry 入场二维码配置
type Entry struct {
	BaseURL string `json:"base_url"`
}

// Workout 训练目标配置，GoalRewardPoints 为 0 时完成目标不送积分
type Workout struct {
	GoalRewardPoints int64 `json:"goal_reward_points"`
}

// Trace 链路追踪配置
type Trace struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"`
}

// Duration 支持 "1s"、"500ms" 形式的时长配置
type Duration struct {
	time.Duration
}

// UnmarshalJSON 同时接受字符串和纳秒整数
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		if value == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

// MarshalJSON 输出字符串形式
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ApplyEnv 用环境变量覆盖敏感配置
func (b *Bootstrap) ApplyEnv() {
	if b.Server == nil {
		b.Server = &Server{}
	}
	if b.Server.Http == nil {
		b.Server.Http = &Server_HTTP{}
	}
	if b.Data == nil {
		b.Data = &Data{}
	}
	if b.Data.Database == nil {
		b.Data.Database = &Data_Database{}
	}
	if b.Data.Redis == nil {
		b.Data.Redis = &Data_Redis{}
	}
	if b.Auth == nil {
		b.Auth = &Auth{}
	}
	if b.Payment == nil {
		b.Payment = &Payment{}
	}
	if b.Mail == nil {
		b.Mail = &Mail{}
	}
	if b.Loyalty == nil {
		b.Loyalty = &Loyalty{}
	}
	if b.Membership == nil {
		b.Membership = &Membership{}
	}
	if b.Entry == nil {
		b.Entry = &Entry{}
	}
	if b.Workout == nil {
		b.Workout = &Workout{}
	}
	if b.Trace == nil {
		b.Trace = &Trace{}
	}

	if v := os.Getenv("FACTFIT_DB_DRIVER"); v != "" {
		b.Data.Database.Driver = v
	}
	if v := os.Getenv("FACTFIT_DB_SOURCE"); v != "" {
		b.Data.Database.Source = v
	}
	if v := os.Getenv("FACTFIT_REDIS_ADDR"); v != "" {
		b.Data.Redis.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		b.Auth.JwtSecret = v
	}
	if v := os.Getenv("MIDTRANS_SERVER_KEY"); v != "" {
		b.Payment.ServerKey = v
	}
	if v := os.Getenv("MIDTRANS_PRODUCTION"); v != "" {
		if prod, err := strconv.ParseBool(v); err == nil {
			b.Payment.Production = prod
		}
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		b.Mail.SendgridApiKey = v
	}
}
