package handlers

import (
	"fmt"
	"runtime"
	"time"

	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

func handleSystemInfo(c *commandContext) error {
	// Get CPU info
	cpuCount, _ := cpu.Counts(true)
	cpuUsage := "n/a"
	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		cpuUsage = fmt.Sprintf("%.1f%%", percent[0])
	}

	// Get memory info
	memory := "n/a"
	if vm, err := mem.VirtualMemory(); err == nil {
		memory = fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024)
	}

	// Get host info
	osVersion, kernel := "n/a", "n/a"
	if hostInfo, err := host.Info(); err == nil {
		osVersion = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
		kernel = hostInfo.KernelVersion
	} else {
		c.b.Logger.Debug("Host info unavailable", zap.Error(err))
	}

	b := c.b
	embed := &discordgo.MessageEmbed{
		Title: "System information",
		Color: utils.ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: osVersion, Inline: true},
			{Name: "🔧 Kernel", Value: kernel, Inline: true},
			{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "🔥 CPU usage", Value: cpuUsage, Inline: true},
			{Name: "🧠 Memory", Value: memory, Inline: true},
			{Name: "⏱️ Gateway latency", Value: c.s.HeartbeatLatency().String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "⌛ Uptime", Value: time.Since(b.StartedAt).Truncate(time.Second).String(), Inline: true},
			{Name: "🎫 Open tickets", Value: fmt.Sprintf("%d", b.Tickets.Count()), Inline: true},
			{Name: "🎉 Giveaways", Value: fmt.Sprintf("%d", b.Giveaways.Active()), Inline: true},
			{Name: "⏲️ Pending timers", Value: fmt.Sprintf("%d", b.Timers.Active()), Inline: true},
			{Name: "🛡️ Anti-raid", Value: fmt.Sprintf("%t (%d tracked)", b.RaidGuard.Enabled(), b.RaidGuard.Tracked()), Inline: true},
			{Name: "🌍 Cached guilds", Value: fmt.Sprintf("%d", len(c.s.State.Guilds)), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "System monitor • " + time.Now().Format("15:04"),
		},
	}
	_, err := c.replyEmbed(embed)
	return err
}
