// Package catalogue maps application keys to the shell commands that restart them or
// check out one of their versions.
package catalogue

import (
	"errors"
	"fmt"
)

// Undefined marks a command an application does not provide.
const Undefined = "UNDEFINED"

var (
	// ErrUnknownApplication is returned for keys missing from the catalogue.
	ErrUnknownApplication = errors.New("unknown application")
	// ErrUndefinedCommand is returned when the requested command is Undefined.
	ErrUndefinedCommand = errors.New("command not defined")
)

// Application is a restartable target system.
type Application struct {
	Key             string `yaml:"key" json:"key"`
	RestartCommand  string `yaml:"restart" json:"restart"`
	CheckoutCommand string `yaml:"checkout" json:"checkout"`
}

// Restart returns the restart command, or ErrUndefinedCommand.
func (a Application) Restart() (string, error) {
	return a.command("restart", a.RestartCommand)
}

// Checkout returns the version checkout command, or ErrUndefinedCommand.
func (a Application) Checkout() (string, error) {
	return a.command("checkout", a.CheckoutCommand)
}

func (a Application) command(kind, cmd string) (string, error) {
	if cmd == "" || cmd == Undefined {
		return "", fmt.Errorf("%s of %s: %w", kind, a.Key, ErrUndefinedCommand)
	}
	return cmd, nil
}

// Catalogue is an ordered, read-only set of applications.
type Catalogue struct {
	keys []string
	apps map[string]Application
}

// New creates a catalogue. Later applications replace earlier ones with the same key.
func New(apps ...Application) *Catalogue {
	c := &Catalogue{apps: make(map[string]Application, len(apps))}
	for _, app := range apps {
		c.add(app)
	}
	return c
}

func (c *Catalogue) add(app Application) {
	if _, exists := c.apps[app.Key]; !exists {
		c.keys = append(c.keys, app.Key)
	}
	c.apps[app.Key] = app
}

// Default returns the applications known out of the box.
func Default() *Catalogue {
	return New(
		Application{Key: "dvdstore", RestartCommand: "sudo service dvdstore restart", CheckoutCommand: Undefined},
		Application{Key: "heat-clinic", RestartCommand: "restartHeatClinic.sh", CheckoutCommand: "checkoutHeatClinicVersion.sh"},
		Application{Key: "cmr", RestartCommand: "sudo service cmr restart", CheckoutCommand: Undefined},
		Application{
			Key:             "cmr-docker",
			RestartCommand:  "docker service scale monitoring_cmr=0; docker service scale monitoring_cmr=1;",
			CheckoutCommand: Undefined,
		},
		Application{
			Key:             "sock-shop",
			RestartCommand:  "docker stack services -q sock-shop   | while read service; do docker service update --force $service; done;",
			CheckoutCommand: Undefined,
		},
		Application{
			Key:             "sock-shop-pinned",
			RestartCommand:  "docker-compose -f docker-compose.sock-shop.yml kill; docker rm $(docker ps -a -q); docker-compose -f docker-compose.sock-shop.yml up -d",
			CheckoutCommand: Undefined,
		},
	)
}

// Lookup returns the application registered under key.
func (c *Catalogue) Lookup(key string) (Application, bool) {
	app, ok := c.apps[key]
	return app, ok
}

// Get is like Lookup but fails with ErrUnknownApplication.
func (c *Catalogue) Get(key string) (Application, error) {
	app, ok := c.apps[key]
	if !ok {
		return Application{}, fmt.Errorf("%w: %q", ErrUnknownApplication, key)
	}
	return app, nil
}

// Keys returns the application keys in registration order.
func (c *Catalogue) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Applications returns the applications in registration order.
func (c *Catalogue) Applications() []Application {
	out := make([]Application, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.apps[k])
	}
	return out
}

// Len returns the number of applications.
func (c *Catalogue) Len() int { return len(c.keys) }

// Merge returns a new catalogue holding c overridden by other.
func (c *Catalogue) Merge(other *Catalogue) *Catalogue {
	merged := New(c.Applications()...)
	if other != nil {
		for _, app := range other.Applications() {
			merged.add(app)
		}
	}
	return merged
}
