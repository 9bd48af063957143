package directory

import (
	"strconv"

	"callboard/internal/ami"
)

// CommandRunner runs one bulk manager command. Satisfied by *ami.Client.
type CommandRunner interface {
	RunBulkCommand(action string, matchEvents []string, completeEvent string) ([]ami.Event, error)
}

// Endpoint is one registered device as reported by the manager
// interface, used to populate administrative binding views.
type Endpoint struct {
	Resource    string `json:"resource"`
	Transport   string `json:"transport,omitempty"`
	Aor         string `json:"aor,omitempty"`
	DeviceState string `json:"deviceState"`
	Contacts    string `json:"contacts,omitempty"`
}

// Queue is one call-distribution group.
type Queue struct {
	Name      string `json:"name"`
	Strategy  string `json:"strategy,omitempty"`
	Calls     int    `json:"calls"`
	Completed int    `json:"completed"`
	Abandoned int    `json:"abandoned"`
	Holdtime  int    `json:"holdtime"`
}

// Service performs bulk directory listings. Failures propagate whole:
// a partial listing is worse than none for the administrator reading it.
type Service struct {
	runner CommandRunner
}

// NewService creates a directory service over the given command runner.
func NewService(runner CommandRunner) *Service {
	return &Service{runner: runner}
}

// ListEndpoints returns every endpoint known to the PBX.
func (s *Service) ListEndpoints() ([]Endpoint, error) {
	events, err := s.runner.RunBulkCommand("PJSIPShowEndpoints",
		[]string{"EndpointList"}, "EndpointListComplete")
	if err != nil {
		return nil, err
	}

	endpoints := make([]Endpoint, 0, len(events))
	for _, ev := range events {
		endpoints = append(endpoints, Endpoint{
			Resource:    ev.Get("ObjectName"),
			Transport:   ev.Get("Transport"),
			Aor:         ev.Get("Aor"),
			DeviceState: ev.Get("DeviceState"),
			Contacts:    ev.Get("Contacts"),
		})
	}
	return endpoints, nil
}

// ListQueues returns every queue, deduplicated by name. A queue can emit
// several QueueParams events per poll cycle; the first one wins and
// first-seen order is preserved.
func (s *Service) ListQueues() ([]Queue, error) {
	events, err := s.runner.RunBulkCommand("QueueStatus",
		[]string{"QueueParams"}, "QueueStatusComplete")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(events))
	queues := make([]Queue, 0, len(events))
	for _, ev := range events {
		name := ev.Get("Queue")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		queues = append(queues, Queue{
			Name:      name,
			Strategy:  ev.Get("Strategy"),
			Calls:     atoi(ev.Get("Calls")),
			Completed: atoi(ev.Get("Completed")),
			Abandoned: atoi(ev.Get("Abandoned")),
			Holdtime:  atoi(ev.Get("Holdtime")),
		})
	}
	return queues, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
