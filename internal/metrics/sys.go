package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// SysHealth represents real-time process and data-directory metrics.
type SysHealth struct {
	Status       string `json:"status"`
	AllocMB      uint64 `json:"allocMB"`
	SysMB        uint64 `json:"sysMB"`
	NumGC        uint32 `json:"numGC"`
	Goroutines   int    `json:"goroutines"`
	DataDiskSize string `json:"dataDiskSize"`
	DataReadable bool   `json:"dataReadable"`
}

// GetSysHealth collects health data. dataPath may be a file or a directory.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	_, statErr := os.Stat(dataPath)
	status := "ok"
	if statErr != nil {
		status = "degraded"
	}

	return SysHealth{
		Status:       status,
		AllocMB:      m.Alloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		DataDiskSize: humanSize(pathSize(dataPath)),
		DataReadable: statErr == nil,
	}
}

func pathSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
