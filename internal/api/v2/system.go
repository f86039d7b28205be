// internal/api/v2/system.go
package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemInfo represents basic system information
type SystemInfo struct {
	OS            string    `json:"os"`
	Architecture  string    `json:"architecture"`
	Hostname      string    `json:"hostname"`
	Platform      string    `json:"platform"`
	PlatformVer   string    `json:"platform_version"`
	KernelVersion string    `json:"kernel_version"`
	UpTime        uint64    `json:"uptime_seconds"`
	BootTime      time.Time `json:"boot_time"`
	AppStart      time.Time `json:"app_start_time"`
	AppUptime     int64     `json:"app_uptime_seconds"`
	NumCPU        int       `json:"num_cpu"`
	GoVersion     string    `json:"go_version"`
}

// ResourceInfo represents system resource usage data
type ResourceInfo struct {
	CPUUsage    float64 `json:"cpu_usage_percent"`
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryFree  uint64  `json:"memory_free"`
	MemoryUsage float64 `json:"memory_usage_percent"`
	ProcessMem  float64 `json:"process_memory_mb"`
	ProcessCPU  float64 `json:"process_cpu_percent"`
}

// DiskInfo represents information about a disk
type DiskInfo struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	Fstype     string  `json:"fstype"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Free       uint64  `json:"free"`
	UsagePerc  float64 `json:"usage_percent"`
}

// initSystemRoutes registers the system introspection endpoints
func (c *Controller) initSystemRoutes() {
	c.Group.GET("/system/info", c.GetSystemInfo)
	c.Group.GET("/system/resources", c.GetResourceInfo)
	c.Group.GET("/system/disks", c.GetDiskInfo)
}

// GetSystemInfo handles GET /system/info
func (c *Controller) GetSystemInfo(ctx echo.Context) error {
	hostInfo, err := host.Info()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get host information", http.StatusInternalServerError)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	info := SystemInfo{
		OS:            runtime.GOOS,
		Architecture:  runtime.GOARCH,
		Hostname:      hostname,
		Platform:      hostInfo.Platform,
		PlatformVer:   hostInfo.PlatformVersion,
		KernelVersion: hostInfo.KernelVersion,
		UpTime:        hostInfo.Uptime,
		BootTime:      time.Unix(int64(hostInfo.BootTime), 0), //nolint:gosec
		NumCPU:        runtime.NumCPU(),
		GoVersion:     runtime.Version(),
	}

	if c.startTime != nil {
		info.AppStart = *c.startTime
		info.AppUptime = int64(time.Since(*c.startTime).Seconds())
	}

	return ctx.JSON(http.StatusOK, info)
}

// GetResourceInfo handles GET /system/resources
func (c *Controller) GetResourceInfo(ctx echo.Context) error {
	resources := ResourceInfo{}

	// Sampled over a short interval for a meaningful percentage.
	if cpuPercent, err := cpu.Percent(time.Second, false); err == nil && len(cpuPercent) > 0 {
		resources.CPUUsage = cpuPercent[0]
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		resources.MemoryTotal = memInfo.Total
		resources.MemoryUsed = memInfo.Used
		resources.MemoryFree = memInfo.Free
		resources.MemoryUsage = memInfo.UsedPercent
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec
		if procMem, err := proc.MemoryInfo(); err == nil && procMem != nil {
			resources.ProcessMem = float64(procMem.RSS) / 1024 / 1024
		}
		if procCPU, err := proc.CPUPercent(); err == nil {
			resources.ProcessCPU = procCPU
		}
	}

	return ctx.JSON(http.StatusOK, resources)
}

// GetDiskInfo handles GET /system/disks
func (c *Controller) GetDiskInfo(ctx echo.Context) error {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get disk partitions", http.StatusInternalServerError)
	}

	disks := make([]DiskInfo, 0, len(partitions))
	for i := range partitions {
		usage, err := disk.Usage(partitions[i].Mountpoint)
		if err != nil {
			// Unreadable mounts (containers, fuse) are skipped, not fatal.
			continue
		}
		disks = append(disks, DiskInfo{
			Device:     partitions[i].Device,
			Mountpoint: partitions[i].Mountpoint,
			Fstype:     partitions[i].Fstype,
			Total:      usage.Total,
			Used:       usage.Used,
			Free:       usage.Free,
			UsagePerc:  usage.UsedPercent,
		})
	}

	return ctx.JSON(http.StatusOK, disks)
}
