package itests

import (
	"testing"

	"Ystore/internal/model"
)

// Checks on the models shipped in db/.
func Test_Registry_Sanity_OnShippedModels(t *testing.T) {
	car, ok := model.Lookup("Car")
	if !ok {
		t.Fatalf("Car model missing in registry")
	}
	if got := model.ExtractPrimaryKeys(car); len(got) != 1 || got[0] != "vin" {
		t.Fatalf("Car primary keys: %v", got)
	}
	if got := model.TargetOf(car, "vin"); got != "car_vin" {
		t.Fatalf("Car.vin target: %q", got)
	}

	user, ok := model.Lookup("User")
	if !ok {
		t.Fatalf("User model missing in registry")
	}
	if got := model.ResolveResourceName(user, "get", ""); got != "Users" {
		t.Fatalf("User resource: %q", got)
	}
}
