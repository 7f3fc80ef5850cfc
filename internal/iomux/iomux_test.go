package iomux

import (
	"testing"
	"time"
)

func TestFakeWaitSleepsToNextInterval(t *testing.T) {
	f := &Fake{
		Next:    func() time.Duration { return 5 * time.Millisecond },
		StdinFd: -1,
	}
	start := time.Now()
	ready, err := f.Wait(0)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Fatalf("expected Wait to sleep at least 5ms, elapsed %v", elapsed)
	}
	if !ready.IMU {
		t.Fatal("Fake must always report the IMU ready")
	}
	if ready.Stdin {
		t.Fatal("with StdinFd == -1, Stdin must never be reported ready")
	}
}

func TestFakeWaitWithNilNextDoesNotBlock(t *testing.T) {
	f := &Fake{StdinFd: -1}
	ready, err := f.Wait(0)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !ready.IMU {
		t.Fatal("Fake must always report the IMU ready")
	}
}

func TestPollWaitWithNoRegisteredDescriptorsReturnsImmediately(t *testing.T) {
	p := New(-1, -1, -1)
	ready, err := p.Wait(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ready != (Ready{}) {
		t.Fatalf("expected no descriptors ready, got %+v", ready)
	}
}
