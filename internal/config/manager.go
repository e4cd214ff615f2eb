package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigManager manages runtime configuration updates
type ConfigManager struct {
	config    *ServerConfig
	loader    *ConfigLoader
	mutex     sync.RWMutex
	callbacks []func(*ServerConfig)
}

// NewConfigManager creates a new configuration manager
func NewConfigManager(configPath, envFile string) *ConfigManager {
	return &ConfigManager{
		loader:    NewConfigLoader(configPath, envFile),
		callbacks: make([]func(*ServerConfig), 0),
	}
}

// Initialize loads and validates the initial configuration
func (cm *ConfigManager) Initialize() error {
	config, err := cm.loader.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cm.mutex.Lock()
	cm.config = config
	cm.mutex.Unlock()
	return nil
}

// GetConfig returns a copy of the current configuration
func (cm *ConfigManager) GetConfig() *ServerConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	configCopy := *cm.config
	return &configCopy
}

// RegisterCallback registers a callback for configuration changes
func (cm *ConfigManager) RegisterCallback(callback func(*ServerConfig)) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.callbacks = append(cm.callbacks, callback)
}

// Watch reloads the config file whenever it changes until ctx is done.
// It is a no-op when no config file was given.
func (cm *ConfigManager) Watch(ctx context.Context) error {
	path := cm.loader.Path()
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	// ดู directory แทนไฟล์ เพราะ editor หลายตัวเขียนไฟล์ใหม่ทับ
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					cm.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️ Config watcher error: %v", err)
			}
		}
	}()

	log.Printf("👀 Watching configuration file %s", path)
	return nil
}

// reload re-reads configuration and notifies callbacks; invalid files are ignored
func (cm *ConfigManager) reload() {
	newConfig, err := cm.loader.LoadConfig()
	if err == nil {
		err = newConfig.Validate()
	}
	if err != nil {
		log.Printf("⚠️ Ignoring config change: %v", err)
		return
	}

	cm.mutex.Lock()
	cm.config = newConfig
	callbacks := append([]func(*ServerConfig){}, cm.callbacks...)
	cm.mutex.Unlock()

	log.Println("🔄 Configuration file changed, reloaded")
	for _, callback := range callbacks {
		configCopy := *newConfig
		callback(&configCopy)
	}
}

// GetConfigSummary returns a summary of current configuration without secrets
func (cm *ConfigManager) GetConfigSummary() map[string]interface{} {
	config := cm.GetConfig()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"port":            config.Port,
			"max_connections": config.MaxConnections,
			"send_buffer":     config.SendBuffer,
		},
		"timeouts": map[string]interface{}{
			"heartbeat_interval": config.HeartbeatInterval.String(),
			"read_timeout":       config.ReadTimeout.String(),
			"write_timeout":      config.WriteTimeout.String(),
			"pong_timeout":       config.PongTimeout.String(),
		},
		"storage": map[string]interface{}{
			"backend":  config.Storage,
			"database": config.MongoDatabase,
		},
		"features": map[string]interface{}{
			"enable_metrics":      config.EnableMetrics,
			"enable_health_check": config.EnableHealthCheck,
		},
	}
}
