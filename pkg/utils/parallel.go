package utils

import "sync"

// ParallelMap 并发地对 items 应用 fn，返回结果切片，顺序与输入一致。
// workers 控制最大并发数；单元素输入直接在当前 goroutine 处理，不起并发。
func ParallelMap[T any, R any](items []T, workers int, fn func(T) R) []R {
	n := len(items)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []R{fn(items[0])}
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]R, n)
	indexCh := make(chan int, n)
	for i := 0; i < n; i++ {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexCh {
				results[i] = fn(items[i])
			}
		}()
	}
	wg.Wait()
	return results
}
