package defaults

import (
	"fmt"

	"github.com/novelshelf/backend/internal/sources"
	"github.com/novelshelf/backend/internal/sources/native/novelight"
	"github.com/novelshelf/backend/internal/sources/yamlsource"
)

// NewRegistry builds the default source registry: native sources first, then
// any declarative sources found under yamlSourcesPath.
func NewRegistry(yamlSourcesPath string) (*sources.Registry, error) {
	registry := sources.NewRegistry()
	_ = registry.Register(novelight.New())

	loaded, loadErr := yamlsource.LoadFromDir(yamlSourcesPath, nil)
	for _, source := range loaded {
		if err := registry.Register(source); err != nil {
			if loadErr == nil {
				loadErr = fmt.Errorf("register yaml source %q: %w", source.Key(), err)
			}
		}
	}

	return registry, loadErr
}
