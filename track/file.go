package track

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load 读取 YAML（或 JSON）格式的跟踪记录文件
func Load(path string) (*Tracks, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Tracks
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse tracks %s: %w", path, err)
	}
	return &t, nil
}

// Save 写出 YAML 格式的跟踪记录文件
func Save(path string, t *Tracks) error {
	b, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
