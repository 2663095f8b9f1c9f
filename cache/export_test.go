package cache

//PendingLoads number of keys with a load in flight
func (c *LoadingCache[K, V]) PendingLoads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.loads)
}
