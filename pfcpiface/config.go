// SPDX-License-Identifier: Apache-2.0
// Copyright 2022-present Open Networking Foundation

package pfcpiface

import (
	"net"
	"net/netip"
	"os"
	"strconv"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

const (
	// Default values
	logLevelDefault = "info"
	n4AddrDefault   = "0.0.0.0:8805"
	httpPortDefault = "8080"
)

// Conf : gateway configuration. JSON files are accepted as well since JSON
// is a subset of YAML.
type Conf struct {
	LogLevel string `yaml:"log_level"`

	// NodeID is advertised in the PFCP Node ID IE, either an IPv4 address
	// or an FQDN. Defaults to the host name.
	NodeID string `yaml:"node_id"`
	N4Addr string `yaml:"n4_addr"`

	// AccessAddr is the GTP-U bind address. It is advertised in the UP F-SEID
	// and F-TEIDs, so it must be a concrete unicast address.
	AccessAddr string `yaml:"access_addr"`
	// SGiAddr is the IP-in-IP bind address toward APN gateways. Uplink
	// forwarding is disabled when it is empty.
	SGiAddr string `yaml:"sgi_addr"`

	HTTPPort string `yaml:"http_port"`

	APNs        []APNConf `yaml:"apns"`
	DefaultRate RateConf  `yaml:"default_rate"`
}

// APNConf : name to gateway mapping.
type APNConf struct {
	Name    string `yaml:"name"`
	Gateway string `yaml:"gateway"`
}

// RateConf : bit rates applied to bearers that come without a QER. 0 is
// unlimited.
type RateConf struct {
	UplinkBps   uint64 `yaml:"uplink_bps"`
	DownlinkBps uint64 `yaml:"downlink_bps"`
}

// validateConf checks that the given config reaches a baseline of correctness.
func validateConf(conf Conf) error {
	if _, err := zapcore.ParseLevel(conf.LogLevel); err != nil {
		return ErrInvalidArgumentWithReason("conf.LogLevel", conf.LogLevel, err.Error())
	}

	if _, _, err := net.SplitHostPort(conf.N4Addr); err != nil {
		return ErrInvalidArgumentWithReason("conf.N4Addr", conf.N4Addr, err.Error())
	}

	if ip := net.ParseIP(conf.AccessAddr); ip == nil || ip.To4() == nil {
		return ErrInvalidArgumentWithReason("conf.AccessAddr", conf.AccessAddr, "invalid IPv4")
	} else if ip.IsUnspecified() || ip.IsMulticast() {
		return ErrInvalidArgumentWithReason("conf.AccessAddr", conf.AccessAddr, "not a unicast address")
	}

	if conf.SGiAddr != "" {
		if ip := net.ParseIP(conf.SGiAddr); ip == nil || ip.To4() == nil {
			return ErrInvalidArgumentWithReason("conf.SGiAddr", conf.SGiAddr, "invalid IPv4")
		}
	}

	if port, err := strconv.ParseUint(conf.HTTPPort, 10, 16); err != nil || port == 0 {
		return ErrInvalidArgumentWithReason("conf.HTTPPort", conf.HTTPPort, "invalid port")
	}

	if len(conf.APNs) == 0 {
		return ErrInvalidArgumentWithReason("conf.APNs", conf.APNs, "at least one APN is required")
	}

	seen := make(map[string]struct{}, len(conf.APNs))

	for _, apn := range conf.APNs {
		if apn.Name == "" {
			return ErrInvalidArgumentWithReason("conf.APNs.Name", apn.Name, "empty APN name")
		}

		if _, ok := seen[apn.Name]; ok {
			return ErrInvalidArgumentWithReason("conf.APNs.Name", apn.Name, "duplicate APN")
		}

		seen[apn.Name] = struct{}{}

		gw, err := netip.ParseAddr(apn.Gateway)
		if err != nil || !gw.Is4() {
			return ErrInvalidArgumentWithReason("conf.APNs.Gateway", apn.Gateway, "invalid IPv4")
		}
	}

	return nil
}

// LoadConfigFile : parse yaml or json file and populate corresponding struct.
func LoadConfigFile(filepath string) (Conf, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return Conf{}, err
	}

	var conf Conf

	if err = yaml.Unmarshal(content, &conf); err != nil {
		return Conf{}, err
	}

	// Set defaults, when missing.
	if conf.LogLevel == "" {
		conf.LogLevel = logLevelDefault
	}

	if conf.N4Addr == "" {
		conf.N4Addr = n4AddrDefault
	}

	if conf.HTTPPort == "" {
		conf.HTTPPort = httpPortDefault
	}

	if conf.NodeID == "" {
		if hostname, err := os.Hostname(); err == nil {
			conf.NodeID = hostname
		}
	}

	// Perform basic validation.
	err = validateConf(conf)
	if err != nil {
		return Conf{}, err
	}

	return conf, nil
}
