package registry

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"ccproxy-hq/ccproxy/pkg/config"
)

func testConfig(names ...string) *config.Config {
	cfg := &config.Config{
		HeaderOverrides:  map[string]map[string]string{"browser": {"User-Agent": "x"}},
		RequestOverrides: map[string]map[string]any{"thinking": {"thinking": map[string]any{"type": "enabled"}}},
		EnvModels:        map[string]any{"ANTHROPIC_MODEL": "m"},
	}
	for _, n := range names {
		cfg.Providers = append(cfg.Providers, config.Provider{
			Name:    n,
			BaseURL: "https://" + n + ".example.com/v1/messages",
			Token:   n + "-token",
		})
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func staticLoader(cfg *config.Config) config.Loader {
	return func() (*config.Config, error) { return cfg.Clone(), nil }
}

func TestRegistry_Selected(t *testing.T) {
	tests := []struct {
		name      string
		providers []string
		state     State
		want      string
		wantOK    bool
	}{
		{"empty list", nil, State{}, "", false},
		{"first by default", []string{"a", "b"}, State{}, "a", true},
		{"stored name", []string{"a", "b"}, State{SelectedProvider: "b"}, "b", true},
		{"stale name falls back", []string{"a", "b"}, State{SelectedProvider: "gone"}, "a", true},
		{"selection required", []string{"a", "b"}, State{SelectedProvider: "b", SelectionRequired: true}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := New(testConfig(tt.providers...), nil, NewMemoryStore(tt.state), nil)

			p, ok := reg.Selected()
			if ok != tt.wantOK {
				t.Fatalf("Selected() ok = %v, want %v", ok, tt.wantOK)
			}
			if p.Name != tt.want {
				t.Errorf("Selected() = %q, want %q", p.Name, tt.want)
			}
		})
	}
}

func TestRegistry_Select(t *testing.T) {
	store := NewMemoryStore(State{SelectionRequired: true})
	reg := New(testConfig("a", "b"), nil, store, nil)

	if reg.Select("missing") {
		t.Error("Select(missing) = true, want false")
	}
	if _, ok := reg.Selected(); ok {
		t.Error("failed Select must not change selection")
	}
	if store.Saves() != 0 {
		t.Errorf("saves = %d, want 0 after failed select", store.Saves())
	}

	if !reg.Select("b") {
		t.Fatal("Select(b) = false, want true")
	}
	p, ok := reg.Selected()
	if !ok || p.Name != "b" {
		t.Errorf("Selected() = %q/%v, want b/true", p.Name, ok)
	}

	st, _ := store.Load()
	if st.SelectedProvider != "b" || st.SelectionRequired {
		t.Errorf("persisted state = %+v", st)
	}
}

func TestRegistry_UpdateModelsAndTestResult(t *testing.T) {
	reg := New(testConfig("a"), nil, nil, nil)

	reg.UpdateModels("a", []string{"m1", "m2"})
	reg.SetTestResult("a", true)
	reg.UpdateModels("ghost", []string{"x"})
	reg.SetTestResult("ghost", false)

	p, _ := reg.Provider("a")
	if !reflect.DeepEqual(p.Models, []string{"m1", "m2"}) {
		t.Errorf("models = %v", p.Models)
	}
	if p.TestResult == nil || !*p.TestResult {
		t.Errorf("test result = %v, want true", p.TestResult)
	}

	// Returned providers are copies
	p.Models[0] = "changed"
	again, _ := reg.Provider("a")
	if again.Models[0] != "m1" {
		t.Error("Provider() returned an alias of registry state")
	}
}

func TestRegistry_Reload(t *testing.T) {
	t.Run("keeps existing selection", func(t *testing.T) {
		store := NewMemoryStore(State{SelectedProvider: "b"})
		reg := New(testConfig("a", "b"), staticLoader(testConfig("c", "b")), store, nil)

		if err := reg.Reload(); err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		p, _ := reg.Selected()
		if p.Name != "b" {
			t.Errorf("Selected() = %q, want b", p.Name)
		}
		if store.Saves() != 0 {
			t.Errorf("saves = %d, want 0 when selection is kept", store.Saves())
		}
	})

	t.Run("falls back to first", func(t *testing.T) {
		store := NewMemoryStore(State{SelectedProvider: "b"})
		reg := New(testConfig("a", "b"), staticLoader(testConfig("c", "d")), store, nil)

		if err := reg.Reload(); err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		p, _ := reg.Selected()
		if p.Name != "c" {
			t.Errorf("Selected() = %q, want c", p.Name)
		}
		st, _ := store.Load()
		if st.SelectedProvider != "c" {
			t.Errorf("persisted selection = %q, want c", st.SelectedProvider)
		}
	})

	t.Run("failure keeps state", func(t *testing.T) {
		loadErr := errors.New("unreadable")
		reg := New(testConfig("a"), func() (*config.Config, error) { return nil, loadErr }, nil, nil)
		reg.UpdateModels("a", []string{"m"})

		err := reg.Reload()
		if !errors.Is(err, loadErr) {
			t.Fatalf("Reload() error = %v, want %v", err, loadErr)
		}
		p, ok := reg.Provider("a")
		if !ok || len(p.Models) != 1 {
			t.Errorf("state changed after failed reload: %+v", p)
		}
	})

	t.Run("no loader", func(t *testing.T) {
		reg := New(testConfig("a"), nil, nil, nil)
		if err := reg.Reload(); err == nil {
			t.Error("Reload() error = nil, want error without loader")
		}
	})

	t.Run("replaces threshold", func(t *testing.T) {
		next := testConfig("a")
		next.Proxy.ErrorThreshold = 9
		reg := New(testConfig("a"), staticLoader(next), nil, nil)

		if err := reg.Reload(); err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		if got := reg.ErrorThreshold(); got != 9 {
			t.Errorf("ErrorThreshold() = %d, want 9", got)
		}
	})
}

func TestRegistry_Reset(t *testing.T) {
	store := NewMemoryStore(State{})
	reg := New(testConfig("a", "b"), staticLoader(testConfig("z")), store, nil)

	reg.Select("b")
	reg.SetOverride("b", config.Override{TokenIn: "query"})
	if err := reg.Reload(); err != nil {
		t.Fatal(err)
	}

	reg.Reset()

	if _, ok := reg.Selected(); ok {
		t.Error("Selected() ok = true after Reset, want false")
	}
	if got := reg.OverrideFor("a"); !got.IsZero() {
		t.Errorf("override = %+v, want zero", got)
	}
	names := []string{}
	for _, p := range reg.Providers() {
		names = append(names, p.Name)
	}
	if !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Errorf("providers after reset = %v, want [a b]", names)
	}

	st, _ := store.Load()
	if !st.SelectionRequired || st.SelectedProvider != "" {
		t.Errorf("persisted state = %+v", st)
	}

	if !reg.Select("a") {
		t.Fatal("Select(a) after reset failed")
	}
	if p, ok := reg.Selected(); !ok || p.Name != "a" {
		t.Errorf("Selected() = %q/%v, want a/true", p.Name, ok)
	}
}

func TestRegistry_Override(t *testing.T) {
	store := NewMemoryStore(State{})
	reg := New(testConfig("a", "b"), nil, store, nil)

	o := config.Override{TokenIn: "header", RequestInject: map[string]any{"k": "v"}}
	reg.SetOverride("a", o)

	// The override is shared across providers
	got := reg.OverrideFor("b")
	if got.TokenIn != "header" {
		t.Errorf("OverrideFor(b).TokenIn = %q, want header", got.TokenIn)
	}

	got.RequestInject["k"] = "changed"
	if reg.OverrideFor("a").RequestInject["k"] != "v" {
		t.Error("OverrideFor returned an alias")
	}

	st, _ := store.Load()
	if st.GlobalOverride.TokenIn != "header" {
		t.Errorf("persisted override = %+v", st.GlobalOverride)
	}
}

func TestRegistry_ErrorCounters(t *testing.T) {
	reg := New(testConfig("a"), nil, nil, nil)

	if got := reg.ErrorThreshold(); got != config.DefaultErrorThreshold {
		t.Errorf("ErrorThreshold() = %d, want %d", got, config.DefaultErrorThreshold)
	}
	if got := reg.ErrorCount("a"); got != 0 {
		t.Errorf("ErrorCount(a) = %d, want 0", got)
	}

	for want := 1; want <= 3; want++ {
		if got := reg.IncrementError("a"); got != want {
			t.Errorf("IncrementError(a) = %d, want %d", got, want)
		}
	}
	if got := reg.ErrorCounts(); got["a"] != 3 {
		t.Errorf("ErrorCounts() = %v", got)
	}

	reg.ResetError("a")
	if got := reg.ErrorCount("a"); got != 0 {
		t.Errorf("ErrorCount(a) after reset = %d, want 0", got)
	}
	if got := reg.ErrorCounts(); len(got) != 0 {
		t.Errorf("ErrorCounts() = %v, want empty", got)
	}
}

func TestRegistry_OverrideSets(t *testing.T) {
	reg := New(testConfig("a"), nil, nil, nil)

	if got := reg.HeaderOverride("browser"); got["User-Agent"] != "x" {
		t.Errorf("HeaderOverride(browser) = %v", got)
	}
	if got := reg.HeaderOverride("missing"); got != nil {
		t.Errorf("HeaderOverride(missing) = %v, want nil", got)
	}
	if got := reg.RequestOverride("thinking"); got == nil {
		t.Error("RequestOverride(thinking) = nil")
	}
	if got := reg.RequestOverride(""); got != nil {
		t.Errorf("RequestOverride(\"\") = %v, want nil", got)
	}
	if got := reg.HeaderOverrideNames(); !reflect.DeepEqual(got, []string{"browser"}) {
		t.Errorf("HeaderOverrideNames() = %v", got)
	}
	if got := reg.RequestOverrideNames(); !reflect.DeepEqual(got, []string{"thinking"}) {
		t.Errorf("RequestOverrideNames() = %v", got)
	}
	if got := reg.EnvModels(); got["ANTHROPIC_MODEL"] != "m" {
		t.Errorf("EnvModels() = %v", got)
	}

	s := reg.Settings()
	if s.TokenParam != config.DefaultTokenParam || s.APITimeout != config.DefaultAPITimeout {
		t.Errorf("Settings() = %+v", s)
	}
}

func TestRegistry_ConcurrentErrorCounters(t *testing.T) {
	reg := New(testConfig("a"), nil, nil, nil)

	const n = 200
	results := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- reg.IncrementError("a")
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool, n)
	for v := range results {
		if v < 1 || v > n {
			t.Errorf("IncrementError returned %d, want 1..%d", v, n)
		}
		if seen[v] {
			t.Errorf("IncrementError returned %d twice", v)
		}
		seen[v] = true
	}
	if got := reg.ErrorCount("a"); got != n {
		t.Errorf("ErrorCount(a) = %d, want %d", got, n)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(State{})
	reg := New(testConfig("a", "b"), staticLoader(testConfig("b", "c")), store, nil)

	consistent := func(p config.Provider) bool {
		return p.BaseURL == "https://"+p.Name+".example.com/v1/messages" && p.Token == p.Name+"-token"
	}

	concurrency := 20
	opsPerGoroutine := 50

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				switch (id + j) % 6 {
				case 0:
					reg.Select("b")
				case 1:
					reg.Select("c")
				case 2:
					if err := reg.Reload(); err != nil {
						t.Errorf("Reload() error = %v", err)
					}
				case 3:
					reg.Reset()
				case 4:
					if p, ok := reg.Selected(); ok && !consistent(p) {
						t.Errorf("Selected() returned torn provider %+v", p)
					}
				case 5:
					for _, p := range reg.Providers() {
						if !consistent(p) {
							t.Errorf("Providers() returned torn provider %+v", p)
						}
					}
					reg.IncrementError("b")
					reg.ResetError("b")
				}
			}
		}(i)
	}
	wg.Wait()

	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if !reg.Select("b") {
		t.Fatal("Select(b) = false after reload")
	}
	p, ok := reg.Selected()
	if !ok || p.Name != "b" {
		t.Errorf("Selected() = %q, %v, want b", p.Name, ok)
	}
}
