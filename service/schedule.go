package service

import (
	"context"
	"time"

	"github.com/BerniceZTT/sales_pipeline/utils"
)

// nextRun 计算下一次在 hour:min:sec 执行的时间
func nextRun(now time.Time, hour, min, sec int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, sec, 0, now.Location())
	if !now.Before(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// ScheduleDailyTaskAt 每天指定时间执行任务，ctx 取消后退出
func ScheduleDailyTaskAt(ctx context.Context, hour, min, sec int, task func()) {
	go func() {
		for {
			timer := time.NewTimer(time.Until(nextRun(time.Now(), hour, min, sec)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				task()
			}
		}
	}()
}

// ExpireIdleSessionsTask 每日清理闲置会话的任务
func ExpireIdleSessionsTask(sessions *SessionManager, maxIdle time.Duration) func() {
	return func() {
		start := time.Now()
		utils.Logger.Info().Msg("开始执行每日闲置会话清理任务")

		expired := sessions.ExpireIdle(maxIdle)

		utils.Logger.Info().
			Int("expired", expired).
			Dur("elapsed", time.Since(start)).
			Msg("每日闲置会话清理任务完成")
	}
}
