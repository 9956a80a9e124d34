package presenter

import (
	"errors"
	"os/exec"
	"reflect"
	"sync"
	"testing"
)

func TestWarnArgs(t *testing.T) {
	tests := []struct {
		name      string
		p         Process
		offerable bool
		want      []string
	}{
		{
			name: "plain",
			p:    Process{Executable: "/bin/lightsout"},
			want: []string{"warn", "--title", "Lights Out", "--body", "5 minute(s) left"},
		},
		{
			name:      "home debug and override",
			p:         Process{Executable: "/bin/lightsout", Home: "/tmp/lo", Debug: true},
			offerable: true,
			want:      []string{"--home", "/tmp/lo", "--debug", "warn", "--title", "Lights Out", "--body", "5 minute(s) left", "--allow-override"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.p.WarnArgs("Lights Out", "5 minute(s) left", tt.offerable)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("WarnArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLaunchUsesExecutable(t *testing.T) {
	var got *exec.Cmd
	p := &Process{Executable: "/opt/lightsout", Home: "/h"}
	p.start = func(cmd *exec.Cmd) error {
		got = cmd
		return nil
	}

	if err := p.PresentWarning("Lights Out", "2 minute(s) remaining", false); err != nil {
		t.Fatalf("PresentWarning() error = %v", err)
	}
	if got == nil {
		t.Fatal("command not started")
	}
	want := []string{"/opt/lightsout", "--home", "/h", "warn", "--title", "Lights Out", "--body", "2 minute(s) remaining"}
	if !reflect.DeepEqual(got.Args, want) {
		t.Errorf("Args = %v, want %v", got.Args, want)
	}
}

func TestLaunchError(t *testing.T) {
	p := &Process{Executable: "/opt/lightsout"}
	p.start = func(*exec.Cmd) error { return errors.New("no such file") }

	if err := p.PresentWarning("t", "b", false); err == nil {
		t.Error("PresentWarning() expected error")
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	s := &Shutdown{run: func(string, ...string) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	}}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.ForceShutdown()
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("shutdown ran %d times, want 1", calls)
	}
}

func TestShutdownDryRun(t *testing.T) {
	s := NewShutdown(true)
	s.run = func(string, ...string) error {
		t.Error("dry run executed the command")
		return nil
	}
	if err := s.ForceShutdown(); err != nil {
		t.Errorf("ForceShutdown() error = %v", err)
	}
}
