package catalog

import "clipbook/pkg/model"

// services is the fixed offering of the shop. The list is intentionally
// static; changing it is a deploy, not a data migration.
var services = []model.Service{
	{ID: 1, Name: "Haircut"},
	{ID: 2, Name: "Haircut + Beard"},
	{ID: 3, Name: "Lineup"},
}

func Services() []model.Service {
	out := make([]model.Service, len(services))
	copy(out, services)
	return out
}

func Contains(name string) bool {
	for _, s := range services {
		if s.Name == name {
			return true
		}
	}
	return false
}
