package bus

import (
	"hash/fnv"
	"sort"
	"sync"
)

// KeyLocker 分段的实体键锁
// 多个键按分段序号升序加锁，不同调用之间不会死锁
type KeyLocker struct {
	stripes []sync.Mutex
}

// NewKeyLocker 创建 n 段的键锁
func NewKeyLocker(n int) *KeyLocker {
	if n <= 0 {
		n = 1
	}
	return &KeyLocker{stripes: make([]sync.Mutex, n)}
}

// Lock 锁住所有键，返回解锁函数
func (l *KeyLocker) Lock(keys ...string) func() {
	idx := l.indexes(keys)
	for _, i := range idx {
		l.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			l.stripes[idx[j]].Unlock()
		}
	}
}

func (l *KeyLocker) indexes(keys []string) []int {
	seen := make(map[int]struct{}, len(keys))
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		h := fnv.New32a()
		_, _ = h.Write([]byte(k))
		i := int(h.Sum32() % uint32(len(l.stripes)))
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
