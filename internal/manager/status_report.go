package manager

import (
	"slices"
	"time"

	"checkoutsdk/pkg/types"
)

// Status builds the /status response, oldest session first.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	list := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		list = append(list, e)
	}
	m.mu.RUnlock()

	slices.SortFunc(list, func(a, b *entry) int { return a.opened.Compare(b.opened) })
	resp := types.StatusResponse{
		Sessions:      make([]types.SessionStatus, 0, len(list)),
		Connections:   m.Connections(),
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
	}
	for _, e := range list {
		resp.Sessions = append(resp.Sessions, e.sdk.Status())
	}
	return resp
}

// Session reports one session.
func (m *Manager) Session(id string) (types.SessionStatus, error) {
	e, err := m.get(id)
	if err != nil {
		return types.SessionStatus{}, err
	}
	return e.sdk.Status(), nil
}
