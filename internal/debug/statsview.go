package debug

import (
	"log"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// StatsAddress is where the runtime stats server listens
const StatsAddress = "localhost:12600"

// StartStatsView launches the runtime stats server in its own goroutine and
// returns a function that shuts it down.
func StartStatsView() (stop func()) {
	viewer.SetConfiguration(viewer.WithAddr(StatsAddress))
	mgr := statsview.New()
	go mgr.Start()
	log.Printf("[DEBUG] Stats server available at http://%s/debug/statsview", StatsAddress)
	return mgr.Stop
}
