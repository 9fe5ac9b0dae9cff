package executor

import "fmt"

// StaticServerRegistry resolves server references from a fixed set handed
// over at startup.
type StaticServerRegistry struct {
	servers map[int64]*Server
}

func NewStaticServerRegistry(servers []Server) *StaticServerRegistry {
	registry := &StaticServerRegistry{servers: make(map[int64]*Server, len(servers))}
	for i := range servers {
		server := servers[i]
		registry.servers[server.ID] = &server
	}
	return registry
}

func (r *StaticServerRegistry) Server(id int64) (*Server, error) {
	server, ok := r.servers[id]
	if !ok {
		return nil, fmt.Errorf("unknown server id %d", id)
	}
	return server, nil
}
