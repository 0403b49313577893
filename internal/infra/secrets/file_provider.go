package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"telegram-media-relay/internal/domain/ports/adapter"
)

var _ adapter.SecretsProvider = (*FileProvider)(nil)

// FileProvider reads credential material from yaml files under a base
// directory: Read("telegram/bot") loads <base>/telegram/bot.yaml. Files are
// cached after the first read; secrets do not rotate while the process runs.
type FileProvider struct {
	base string

	mu    sync.Mutex
	cache map[string]map[string]string
}

func NewFileProvider(base string) *FileProvider {
	return &FileProvider{base: base, cache: make(map[string]map[string]string)}
}

func (p *FileProvider) Read(path string) (map[string]string, error) {
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("secret path %q escapes the secrets directory", path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache[clean]; ok {
		return cached, nil
	}

	data, err := os.ReadFile(filepath.Join(p.base, clean+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("read secret %s: %w", clean, err)
	}
	var values map[string]string
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse secret %s: %w", clean, err)
	}
	p.cache[clean] = values
	return values, nil
}
