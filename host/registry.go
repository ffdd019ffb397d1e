package host

import (
	"go.uber.org/zap"

	serial "github.com/allbin/go-serialport"
)

// Registry lists the serial ports visible to the host.
type Registry struct {
	logger *zap.Logger
	list   func() ([]serial.PortDescriptor, error)
}

// NewRegistry returns a Registry reporting enumeration failures to logger.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger, list: serial.ListPorts}
}

// ListPorts returns the ports in the order the OS reports them. If the OS
// cannot be queried the failure is logged and the result is empty.
func (r *Registry) ListPorts() []serial.PortDescriptor {
	ports, err := r.list()
	if err != nil {
		r.logger.Error("failed to list serial ports", zap.Error(err))
		return []serial.PortDescriptor{}
	}
	return ports
}

// ListPortMaps is ListPorts in mapping form, see serial.PortDescriptor.Map.
func (r *Registry) ListPortMaps() []map[string]any {
	ports := r.ListPorts()
	maps := make([]map[string]any, 0, len(ports))
	for _, p := range ports {
		maps = append(maps, p.Map())
	}
	return maps
}
