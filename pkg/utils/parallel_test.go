package utils

import (
	"math/rand"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestParallelMap(t *testing.T) {
	// 测试空输入
	t.Run("empty input", func(t *testing.T) {
		var emptyInput []int
		result := ParallelMap(emptyInput, 4, func(i int) int {
			return i * 2
		})
		if len(result) != 0 {
			t.Errorf("expected empty result, got %v", result)
		}
	})

	// 测试单元素输入 - 应该直接处理，不使用并发
	t.Run("single input", func(t *testing.T) {
		input := []int{42}
		result := ParallelMap(input, 4, func(i int) int {
			return i * 2
		})
		if len(result) != 1 || result[0] != 84 {
			t.Errorf("expected [84], got %v", result)
		}
	})

	// 测试多元素输入 - 确保顺序正确
	t.Run("multiple inputs with order", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5}
		expected := []int{2, 4, 6, 8, 10}

		result := ParallelMap(input, 3, func(i int) int {
			// 添加随机延迟，测试顺序保持
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			return i * 2
		})

		if !reflect.DeepEqual(result, expected) {
			t.Errorf("expected %v, got %v", expected, result)
		}
	})

	// 测试并发执行 - 确保真的是并行处理
	t.Run("concurrent execution", func(t *testing.T) {
		input := make([]int, 100)
		for i := range input {
			input[i] = i
		}

		var maxConcurrent int32
		var currentConcurrent int32

		ParallelMap(input, 10, func(i int) int {
			current := atomic.AddInt32(&currentConcurrent, 1)
			for {
				max := atomic.LoadInt32(&maxConcurrent)
				if current <= max {
					break
				}
				if atomic.CompareAndSwapInt32(&maxConcurrent, max, current) {
					break
				}
			}

			// 模拟工作
			time.Sleep(20 * time.Millisecond)

			atomic.AddInt32(&currentConcurrent, -1)
			return i * 2
		})

		if maxConcurrent < 2 || maxConcurrent > 10 {
			t.Errorf("expected max concurrent between 2-10, got %d", maxConcurrent)
		}
	})

	// 测试大量任务的正确性
	t.Run("many tasks", func(t *testing.T) {
		const taskCount = 10000
		input := make([]int, taskCount)
		for i := range input {
			input[i] = i
		}

		result := ParallelMap(input, 16, func(i int) int {
			return i * i
		})

		for i, v := range result {
			if v != i*i {
				t.Errorf("incorrect result at index %d: expected %d, got %d", i, i*i, v)
				break
			}
		}
	})

	// workers 超过任务数时不应 panic 或丢结果
	t.Run("more workers than tasks", func(t *testing.T) {
		result := ParallelMap([]int{1, 2, 3}, 64, func(i int) int { return i + 1 })
		if !reflect.DeepEqual(result, []int{2, 3, 4}) {
			t.Errorf("unexpected result: %v", result)
		}
	})
}
