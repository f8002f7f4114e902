package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string // DEV (local; default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		Build    string
		AppName  string
		WorkDir  string

		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server       ServerConfig
		Database     DatabaseConfig
		GradeReviews GradeReviewsConfig
	}

	ServerConfig struct {
		Host            string
		Port            int
		DebugHost       string
		ShutdownTimeout time.Duration
		UserHeader      string // header carrying the acting user id, set by the host gateway
	}

	DatabaseConfig struct {
		Engine      string
		Host        string
		Port        int
		Name        string
		User        string
		Password    string
		DisableTLS  bool
		TablePrefix string
	}

	GradeReviewsConfig struct {
		// HostURL is the LMS wwwroot, used to build event URLs.
		HostURL string
		// AnonymizeReviewers writes the computed "Participant N" identity onto comments
		// for viewers who may not see the real author under blind marking.
		AnonymizeReviewers bool
		GuestUserID        int
		GuestEmail         string
		PlaceholderAvatar  string
		NotifyAuthor       bool
		MaxContentLength   int
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Table returns the prefixed name of a host table.
func (d DatabaseConfig) Table(name string) string {
	return d.TablePrefix + name
}

// NewConfig loads the configuration from the environment and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Grade Reviews")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "Grade Reviews <noreply@localhost>")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.userHeader", "X-Gradereviews-User")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "moodle")
	v.SetDefault("database.user", "moodle")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.tablePrefix", "mdl_")

	v.SetDefault("gradereviews.hostURL", "http://localhost")
	v.SetDefault("gradereviews.anonymizeReviewers", false)
	v.SetDefault("gradereviews.guestUserID", 1)
	v.SetDefault("gradereviews.guestEmail", "root@localhost")
	v.SetDefault("gradereviews.placeholderAvatar", "/theme/image.php/boost/core/1/u/f2")
	v.SetDefault("gradereviews.notifyAuthor", false)
	v.SetDefault("gradereviews.maxContentLength", 10000)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		WorkDir:          wd,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			UserHeader:      v.GetString("server.userHeader"),
		},
		Database: DatabaseConfig{
			Engine:      v.GetString("database.engine"),
			Host:        v.GetString("database.host"),
			Port:        v.GetInt("database.port"),
			Name:        v.GetString("database.name"),
			User:        v.GetString("database.user"),
			Password:    v.GetString("database.password"),
			DisableTLS:  v.GetBool("database.disableTLS"),
			TablePrefix: v.GetString("database.tablePrefix"),
		},
		GradeReviews: GradeReviewsConfig{
			HostURL:            v.GetString("gradereviews.hostURL"),
			AnonymizeReviewers: v.GetBool("gradereviews.anonymizeReviewers"),
			GuestUserID:        v.GetInt("gradereviews.guestUserID"),
			GuestEmail:         v.GetString("gradereviews.guestEmail"),
			PlaceholderAvatar:  v.GetString("gradereviews.placeholderAvatar"),
			NotifyAuthor:       v.GetBool("gradereviews.notifyAuthor"),
			MaxContentLength:   v.GetInt("gradereviews.maxContentLength"),
		},
	}
}
