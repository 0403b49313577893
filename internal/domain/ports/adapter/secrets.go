package adapter

// SecretsProvider reads credential material by path. Implementations decide
// where the material lives (file tree, environment, external vault).
type SecretsProvider interface {
	Read(path string) (map[string]string, error)
}
