package utils

import (
	"fmt"
	"time"
)

// StepResult 幂等步骤的执行结果
type StepResult struct {
	AlreadyCompleted bool
	Attempts         int
}

// ExecuteIdempotentStep 先检查操作是否已完成，未完成才执行；retries 为失败后的重试次数
func ExecuteIdempotentStep(checkExists func() (bool, error), operation func() error, retries int) (StepResult, error) {
	// 检查操作是否已完成
	exists, err := checkExists()
	if err != nil {
		return StepResult{}, err
	}

	if exists {
		return StepResult{AlreadyCompleted: true}, nil
	}

	// 执行操作，如果失败则重试
	var lastError error
	for i := 0; i <= retries; i++ {
		err := operation()
		if err == nil {
			return StepResult{Attempts: i + 1}, nil
		}

		lastError = err
		LogInfo(map[string]interface{}{
			"error":    err.Error(),
			"attempt":  i + 1,
			"maxRetry": retries,
		}, "操作失败")

		// 最后一次失败不需要等待
		if i < retries {
			time.Sleep(1 * time.Second)
		}
	}

	return StepResult{Attempts: retries + 1}, lastError
}

// LogInventoryOperation 记录库存操作日志
func LogInventoryOperation(operation, productID string, quantity int, success bool) {
	status := "成功"
	if !success {
		status = "状态不确定"
	}

	LogInfo(map[string]interface{}{
		"productId": productID,
		"quantity":  quantity,
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	}, fmt.Sprintf("库存操作: %s", operation))
}
