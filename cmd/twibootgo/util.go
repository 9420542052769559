package main

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/sci-bots/twibootgo/twiboot"
)

// Most commands need this, so... yeah
func PrintJson(obj interface{}) {
	rawjson, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		log.Fatalln("Couldn't serialize json: ", err)
	}
	fmt.Println(string(rawjson))
}

// Produce an md5 string from given data (a simple shortcut)
func Md5String(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

// Settings an operator would rather not retype on every invocation.
// Loaded from an optional toml file; explicit flags always win.
type Settings struct {
	Bus     string `toml:"bus"`
	Address string `toml:"address"`
	Delay   string `toml:"delay"`
}

func loadSettings(path string) (Settings, error) {
	var settings Settings
	if path == "" {
		return settings, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("read config '%s': %w", path, err)
	}
	if err := toml.Unmarshal(raw, &settings); err != nil {
		return settings, fmt.Errorf("parse config '%s': %w", path, err)
	}
	return settings, nil
}

func (s *Settings) resolveBus(arg string) string {
	if arg != "" {
		return arg
	}
	return s.Bus
}

func (s *Settings) resolveAddress(flag string) (uint8, error) {
	raw := flag
	if raw == "" {
		raw = s.Address
	}
	if raw == "" {
		return twiboot.DefaultAddress, nil
	}
	// Base 0 so both 0x29 and 41 work
	value, err := strconv.ParseUint(raw, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad device address '%s': %w", raw, err)
	}
	return uint8(value), nil
}

func (s *Settings) resolveDelay(flag time.Duration) (time.Duration, error) {
	if flag > 0 {
		return flag, nil
	}
	if s.Delay == "" {
		return twiboot.DefaultBaseDelay, nil
	}
	value, err := time.ParseDuration(s.Delay)
	if err != nil {
		return 0, fmt.Errorf("bad delay '%s': %w", s.Delay, err)
	}
	return value, nil
}
