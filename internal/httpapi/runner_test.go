package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"carharvest-engine/internal/config"
	"carharvest-engine/internal/domain"
	"carharvest-engine/internal/harvest"
	"carharvest-engine/internal/store"
)

// A run started by the scheduler must leave the same trail as one started by
// the POST handler: status updates, run history, last result.
func TestTriggerDoesFullBookkeeping(t *testing.T) {
	fakeRun := func(ctx context.Context, cfg config.Config, baseURL string, maxPages int, onProgress harvest.ProgressFunc) harvest.Result {
		for i := 1; i <= maxPages; i++ {
			onProgress(i, maxPages)
		}
		return harvest.Result{
			Records: []domain.ListingRecord{
				{Price: 420, Year: 2012, Mark: "subaru", Model: "impreza", Grade: domain.GradeUnknown},
			},
		}
	}
	d := testDeps(t, fakeRun)

	cfg := d.CfgVal.Load().(config.Config)
	if !d.Runner.Trigger(cfg, "https://www.tc-v.com/used_car/subaru/impreza/", 2) {
		t.Fatal("trigger rejected with nothing running")
	}

	st := waitNotRunning(t, d.HarvestStatus)
	if st.LastCount != 1 || st.Completed != 2 || st.TotalPages != 2 {
		t.Errorf("status = %+v", st)
	}
	if st.LastOkAt == "" {
		t.Error("LastOkAt not set")
	}

	res, _ := d.LastResult.Load().(harvest.Result)
	if len(res.Records) != 1 || res.Records[0].Mark != "subaru" {
		t.Errorf("last result = %+v", res.Records)
	}

	runs, err := store.ListRuns(context.Background(), d.DB, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Model != "impreza" || runs[0].Status != store.RunStatusOK || runs[0].Records != 1 {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestTriggerAdmitsExactlyOneConcurrentCaller(t *testing.T) {
	release := make(chan struct{})
	fakeRun := func(ctx context.Context, cfg config.Config, baseURL string, maxPages int, onProgress harvest.ProgressFunc) harvest.Result {
		<-release
		return harvest.Result{}
	}
	d := testDeps(t, fakeRun)
	cfg := d.CfgVal.Load().(config.Config)

	const callers = 8
	var wg sync.WaitGroup
	accepted := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			accepted <- d.Runner.Trigger(cfg, "https://www.tc-v.com/used_car/mazda/rx-7/", 2)
		}()
	}
	wg.Wait()
	close(accepted)

	got := 0
	for ok := range accepted {
		if ok {
			got++
		}
	}
	if got != 1 {
		t.Fatalf("%d of %d simultaneous triggers accepted, want exactly 1", got, callers)
	}

	close(release)
	waitNotRunning(t, d.HarvestStatus)

	// the slot frees once the run finishes
	deadline := time.Now().Add(time.Second)
	for !d.Runner.Trigger(cfg, "https://www.tc-v.com/used_car/mazda/rx-7/", 1) {
		if time.Now().After(deadline) {
			t.Fatal("trigger still rejected after the previous run finished")
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitNotRunning(t, d.HarvestStatus)
}

func TestTriggerAbortedRunKeepsCriticalMessage(t *testing.T) {
	fakeRun := func(ctx context.Context, cfg config.Config, baseURL string, maxPages int, onProgress harvest.ProgressFunc) harvest.Result {
		return harvest.Result{Log: []harvest.Entry{
			{Level: harvest.LevelCritical, Stage: harvest.StageNetwork, Message: "page 1 failed: timeout"},
		}}
	}
	d := testDeps(t, fakeRun)
	cfg := d.CfgVal.Load().(config.Config)

	if !d.Runner.Trigger(cfg, "https://www.tc-v.com/used_car/honda/civic/", 3) {
		t.Fatal("trigger rejected")
	}
	st := waitNotRunning(t, d.HarvestStatus)
	if !strings.Contains(st.LastError, "timeout") {
		t.Errorf("LastError = %q", st.LastError)
	}

	runs, err := store.ListRuns(context.Background(), d.DB, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != store.RunStatusAborted {
		t.Errorf("runs = %+v", runs)
	}
}
