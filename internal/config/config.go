package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SwitchConfig holds the datapath-facing constants of the proxy. Every
// field can also be set through the environment variable named in its
// comment, which takes precedence over the file.
type SwitchConfig struct {
	// ListenAddr is the address the OpenFlow controller listens on.
	ListenAddr string `yaml:"listen_addr"`
	// CoproPort is the switch port facing the coprocessor segment (COPROPORT).
	CoproPort uint32 `yaml:"copro_port"`
	// FakePort is the switch port facing the fake services segment (FAKEPORT).
	FakePort uint32 `yaml:"fake_port"`
	// FakeServerMAC is the MAC of the fake services interface (FAKESERVERMAC).
	FakeServerMAC string `yaml:"fake_server_mac"`
	// FakeClientMAC is the MAC all coprocessed hosts are faked behind (FAKECLIENTMAC).
	FakeClientMAC string `yaml:"fake_client_mac"`
	// VLAN is the coprocessed VLAN id pushed on reverse traffic (VLAN).
	VLAN uint16 `yaml:"vlan"`
	// NFVIP is the fake services interface in CIDR form (NFVIP).
	NFVIP string `yaml:"nfv_ip"`
	// IdleTimeoutSec garbage-collects translated flows on the switch (IDLE).
	IdleTimeoutSec uint16 `yaml:"idle_timeout_sec"`
}

// NotifierConfig holds the configuration for the NATS flow-event publisher.
type NotifierConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig holds the connection details for the flow-event archive.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// APIConfig holds the configuration for the status HTTP server.
type APIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Switch   SwitchConfig     `yaml:"switch"`
	Notifier NotifierConfig   `yaml:"notifier"`
	Sink     ClickHouseConfig `yaml:"sink"`
	API      APIConfig        `yaml:"api"`
}

// Defaults returns a Config populated with the documented defaults.
func Defaults() *Config {
	return &Config{
		Switch: SwitchConfig{
			ListenAddr:     ":6653",
			CoproPort:      1,
			FakePort:       2,
			FakeServerMAC:  "0e:00:00:00:00:66",
			FakeClientMAC:  "0e:00:00:00:00:67",
			VLAN:           2,
			NFVIP:          "192.168.101.1/24",
			IdleTimeoutSec: 30,
		},
		Notifier: NotifierConfig{
			NATSURL: "nats://127.0.0.1:4222",
			Subject: "netdecoy.flows",
		},
		Sink: ClickHouseConfig{
			Host:     "127.0.0.1",
			Port:     9000,
			Database: "default",
		},
		API: APIConfig{
			ListenAddr: ":8080",
		},
	}
}

// LoadConfig reads the configuration from a YAML file, then applies any
// environment overrides. A missing file is not an error: the original
// deployment surface is environment-only, so defaults plus environment
// must be enough to run.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Defaults()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays the original environment-variable surface on top of
// whatever the file provided.
func (c *Config) applyEnv() error {
	if v := os.Getenv("COPROPORT"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid COPROPORT %q: %w", v, err)
		}
		c.Switch.CoproPort = uint32(n)
	}
	if v := os.Getenv("FAKEPORT"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid FAKEPORT %q: %w", v, err)
		}
		c.Switch.FakePort = uint32(n)
	}
	if v := os.Getenv("FAKESERVERMAC"); v != "" {
		c.Switch.FakeServerMAC = v
	}
	if v := os.Getenv("FAKECLIENTMAC"); v != "" {
		c.Switch.FakeClientMAC = v
	}
	if v := os.Getenv("VLAN"); v != "" {
		n, err := strconv.ParseUint(v, 10, 12)
		if err != nil {
			return fmt.Errorf("invalid VLAN %q: %w", v, err)
		}
		c.Switch.VLAN = uint16(n)
	}
	if v := os.Getenv("NFVIP"); v != "" {
		c.Switch.NFVIP = v
	}
	if v := os.Getenv("IDLE"); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid IDLE %q: %w", v, err)
		}
		c.Switch.IdleTimeoutSec = uint16(n)
	}
	return nil
}

// Static is the parsed, immutable runtime configuration handed to every
// component. It is constructed once in main and never mutated.
type Static struct {
	CoproPort     uint32
	FakePort      uint32
	FakeServerMAC net.HardwareAddr
	FakeClientMAC net.HardwareAddr
	VLAN          uint16
	// FakeIP is the fake services interface address.
	FakeIP net.IP
	// FakeNet is the fake subnet; its IP field is the network address.
	FakeNet     *net.IPNet
	IdleTimeout uint16
}

// Parse validates the switch section and returns the immutable view.
func (c *SwitchConfig) Parse() (*Static, error) {
	serverMAC, err := net.ParseMAC(c.FakeServerMAC)
	if err != nil {
		return nil, fmt.Errorf("invalid fake_server_mac %q: %w", c.FakeServerMAC, err)
	}
	clientMAC, err := net.ParseMAC(c.FakeClientMAC)
	if err != nil {
		return nil, fmt.Errorf("invalid fake_client_mac %q: %w", c.FakeClientMAC, err)
	}
	ip, ipNet, err := net.ParseCIDR(c.NFVIP)
	if err != nil {
		return nil, fmt.Errorf("invalid nfv_ip %q: %w", c.NFVIP, err)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("nfv_ip %q is not IPv4", c.NFVIP)
	}
	if c.CoproPort == c.FakePort {
		return nil, fmt.Errorf("copro_port and fake_port must differ, both are %d", c.CoproPort)
	}
	// A 12-bit id; anything larger would bleed into the OFPVID_PRESENT
	// bit when pushed onto reverse traffic.
	if c.VLAN > 4095 {
		return nil, fmt.Errorf("vlan %d out of range, must be at most 4095", c.VLAN)
	}
	return &Static{
		CoproPort:     c.CoproPort,
		FakePort:      c.FakePort,
		FakeServerMAC: serverMAC,
		FakeClientMAC: clientMAC,
		VLAN:          c.VLAN,
		FakeIP:        ip4,
		FakeNet:       ipNet,
		IdleTimeout:   c.IdleTimeoutSec,
	}, nil
}
