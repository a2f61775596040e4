package observe

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupBridgesInstrumentsToRegistry(t *testing.T) {
	tele, err := Setup(context.Background(), SetupConfig{ServiceName: "sonant-test"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = tele.Shutdown(context.Background()) })

	ctr, err := otel.Meter("setup-test").Int64Counter("sonant.test.events")
	if err != nil {
		t.Fatalf("Int64Counter: %v", err)
	}
	ctr.Add(context.Background(), 3)

	families, err := tele.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var foundCounter, foundRuntime bool
	for _, mf := range families {
		name := mf.GetName()
		if strings.Contains(name, "sonant_test_events") {
			foundCounter = true
		}
		if name == "go_goroutines" {
			foundRuntime = true
		}
	}
	if !foundCounter {
		t.Error("otel counter did not reach the registry")
	}
	if !foundRuntime {
		t.Error("runtime collector metrics missing from the registry")
	}
}

func TestSetupDefaultsServiceName(t *testing.T) {
	tele, err := Setup(context.Background(), SetupConfig{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = tele.Shutdown(context.Background()) })

	if tele.Registry == nil {
		t.Fatal("Registry is nil")
	}
}
