package types

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Settings holds the scalar options of a policy file. Server lists, network
// ACLs and recipient whitelists are not part of it; they are ingested one item
// at a time by the policy loader so that every item keeps its line number.
// ClamAV, Spamd and Cache carry the timeouts and upstream health parameters
// consumed by the scanning clients.
// Greylisting, Limits and DKIM toggle the corresponding pipeline stages.
// TempFilesMode is the permission mask for spooled message copies.
type Settings struct {
	ClamAV      ClamAVSettings      `yaml:"clamav" json:"clamav"`
	Spamd       SpamdSettings       `yaml:"spamd" json:"spamd"`
	Cache       CacheSettings       `yaml:"cache" json:"cache"`
	Greylisting GreylistingSettings `yaml:"greylisting" json:"greylisting"`
	Limits      LimitsSettings      `yaml:"limits" json:"limits"`
	DKIM        DKIMSettings        `yaml:"dkim" json:"dkim"`

	PidFile       string `yaml:"pid_file" json:"pid_file,omitempty"`
	TempDir       string `yaml:"temp_dir" json:"temp_dir,omitempty"`
	TempFilesMode uint32 `yaml:"tempfiles_mode" json:"tempfiles_mode"`
}

// UpstreamSettings drives failover of a server pool: a server that fails
// MaxErrors times within ErrorTime is considered dead for DeadTime.
type UpstreamSettings struct {
	ErrorTime time.Duration `yaml:"error_time" json:"error_time"`
	DeadTime  time.Duration `yaml:"dead_time" json:"dead_time"`
	MaxErrors int           `yaml:"maxerrors" json:"maxerrors"`
}

type ClamAVSettings struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	PortTimeout    time.Duration `yaml:"port_timeout" json:"port_timeout"`
	ResultsTimeout time.Duration `yaml:"results_timeout" json:"results_timeout"`

	UpstreamSettings `yaml:",inline" json:"upstream"`
}

type SpamdSettings struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ResultsTimeout time.Duration `yaml:"results_timeout" json:"results_timeout"`
	RetryCount     int           `yaml:"retry_count" json:"retry_count"`
	RetryTimeout   time.Duration `yaml:"retry_timeout" json:"retry_timeout"`

	RejectMessage   string `yaml:"reject_message" json:"reject_message"`
	RspamdMetric    string `yaml:"rspamd_metric" json:"rspamd_metric"`
	SpamHeader      string `yaml:"spam_header" json:"spam_header"`
	SpamHeaderValue string `yaml:"spam_header_value" json:"spam_header_value"`
	SpamBarChar     string `yaml:"spam_bar_char" json:"spam_bar_char"`
	SpamAddHeader   bool   `yaml:"spam_add_header" json:"spam_add_header"`
	SoftFail        bool   `yaml:"soft_fail" json:"soft_fail"`
	TempFail        bool   `yaml:"temp_fail" json:"temp_fail"`
	Greylist        bool   `yaml:"greylist" json:"greylist"`

	UpstreamSettings `yaml:",inline" json:"upstream"`
}

type CacheSettings struct {
	ConnectTimeout  time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	Password        string        `yaml:"password" json:"-"`
	DBName          string        `yaml:"dbname" json:"dbname,omitempty"`
	CopyChannel     string        `yaml:"copy_channel" json:"copy_channel,omitempty"`
	SpamChannel     string        `yaml:"spam_channel" json:"spam_channel,omitempty"`
	CopyProbability float64       `yaml:"copy_probability" json:"copy_probability"`

	UpstreamSettings `yaml:",inline" json:"upstream"`
}

type GreylistingSettings struct {
	Enable             bool          `yaml:"enable" json:"enable"`
	Timeout            time.Duration `yaml:"timeout" json:"timeout"`
	Expire             time.Duration `yaml:"expire" json:"expire"`
	WhitelistingExpire time.Duration `yaml:"whitelisting_expire" json:"whitelisting_expire"`
	GreyPrefix         string        `yaml:"grey_prefix" json:"grey_prefix"`
	WhitePrefix        string        `yaml:"white_prefix" json:"white_prefix"`
	IDPrefix           string        `yaml:"id_prefix" json:"id_prefix"`
	Message            string        `yaml:"message" json:"message"`
}

type LimitsSettings struct {
	Enable bool `yaml:"enable" json:"enable"`
}

type DKIMSettings struct {
	Enable   bool `yaml:"enable" json:"enable"`
	AuthOnly bool `yaml:"auth_only" json:"auth_only"`
}

const (
	DefaultSpamdRejectMessage = "Spam message rejected; If this is not spam contact abuse team"
	DefaultGreylistedMessage  = "Try again later"
	DefaultRspamdMetric       = "default"
	DefaultSpamHeader         = "X-Spam"
	DefaultSpamHeaderValue    = "yes"

	defaultGreylistingExpire = 24 * time.Hour
)

func defaultUpstream() UpstreamSettings {
	return UpstreamSettings{
		ErrorTime: 10 * time.Second,
		DeadTime:  300 * time.Second,
		MaxErrors: 10,
	}
}

// DefaultSettings returns the settings a policy starts from before the file
// is applied.
func DefaultSettings() Settings {
	return Settings{
		ClamAV: ClamAVSettings{
			ConnectTimeout:   time.Second,
			PortTimeout:      3 * time.Second,
			ResultsTimeout:   20 * time.Second,
			UpstreamSettings: defaultUpstream(),
		},
		Spamd: SpamdSettings{
			ConnectTimeout:   time.Second,
			ResultsTimeout:   20 * time.Second,
			RetryCount:       5,
			RetryTimeout:     time.Second,
			RejectMessage:    DefaultSpamdRejectMessage,
			RspamdMetric:     DefaultRspamdMetric,
			SpamHeader:       DefaultSpamHeader,
			SpamHeaderValue:  DefaultSpamHeaderValue,
			SpamBarChar:      "x",
			SpamAddHeader:    true,
			SoftFail:         true,
			Greylist:         true,
			UpstreamSettings: defaultUpstream(),
		},
		Cache: CacheSettings{
			ConnectTimeout:   time.Second,
			CopyProbability:  100.0,
			UpstreamSettings: defaultUpstream(),
		},
		Greylisting: GreylistingSettings{
			Enable:             true,
			Timeout:            300 * time.Second,
			Expire:             defaultGreylistingExpire,
			WhitelistingExpire: 3 * defaultGreylistingExpire,
			GreyPrefix:         "grey",
			WhitePrefix:        "white",
			IDPrefix:           "id",
			Message:            DefaultGreylistedMessage,
		},
		Limits: LimitsSettings{Enable: true},
		DKIM:   DKIMSettings{Enable: true, AuthOnly: true},

		TempFilesMode: 0o600,
	}
}

func (u UpstreamSettings) validate(section string) error {
	if u.ErrorTime < 0 || u.DeadTime < 0 {
		return fmt.Errorf("%s: error_time and dead_time must be non-negative", section)
	}
	if u.MaxErrors < 0 {
		return fmt.Errorf("%s: maxerrors must be non-negative", section)
	}
	return nil
}

func (s Settings) Validate() error {
	for name, d := range map[string]time.Duration{
		"clamav.connect_timeout":          s.ClamAV.ConnectTimeout,
		"clamav.port_timeout":             s.ClamAV.PortTimeout,
		"clamav.results_timeout":          s.ClamAV.ResultsTimeout,
		"spamd.connect_timeout":           s.Spamd.ConnectTimeout,
		"spamd.results_timeout":           s.Spamd.ResultsTimeout,
		"spamd.retry_timeout":             s.Spamd.RetryTimeout,
		"cache.connect_timeout":           s.Cache.ConnectTimeout,
		"greylisting.timeout":             s.Greylisting.Timeout,
		"greylisting.expire":              s.Greylisting.Expire,
		"greylisting.whitelisting_expire": s.Greylisting.WhitelistingExpire,
	} {
		if d < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if err := s.ClamAV.validate("clamav"); err != nil {
		return err
	}
	if err := s.Spamd.validate("spamd"); err != nil {
		return err
	}
	if err := s.Cache.validate("cache"); err != nil {
		return err
	}
	if s.Spamd.RetryCount < 0 {
		return fmt.Errorf("spamd.retry_count must be non-negative")
	}
	if utf8.RuneCountInString(s.Spamd.SpamBarChar) != 1 {
		return fmt.Errorf("spamd.spam_bar_char must be a single character")
	}
	if s.Cache.CopyProbability < 0 || s.Cache.CopyProbability > 100 {
		return fmt.Errorf("cache.copy_probability must be between 0 and 100")
	}
	if s.TempFilesMode > 0o777 {
		return fmt.Errorf("tempfiles_mode must be a permission mask")
	}
	return nil
}
