package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/tripcore/utils/container"
)

func TestPriorityQueueOrder(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	q.HeapPush("c", 3)
	q.HeapPush("a", 1)
	q.HeapPush("b", 2)

	first, p := q.First()
	assert.Equal(t, "a", first)
	assert.Equal(t, 1.0, p)

	got := []string{}
	for q.Len() > 0 {
		v, _ := q.HeapPop()
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestPriorityQueueStableForEqualPriority(t *testing.T) {
	q := container.NewPriorityQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(i, 10)
	}
	q.Heapify()
	q.HeapPush(5, 10)

	got := []int{}
	for q.Len() > 0 {
		v, _ := q.HeapPop()
		got = append(got, v)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)
}
