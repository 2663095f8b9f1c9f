package api

//FloatingIP a public address that can be attached to and detached from a node
type FloatingIP struct {
	ID      string
	Address string
	Pool    string
	//ServerID is empty when the address is not attached
	ServerID string
	FixedIP  string
}

//Attached tells if the floating ip is associated with a server
func (ip *FloatingIP) Attached() bool {
	return ip.ServerID != "" || ip.FixedIP != ""
}

//FloatingIPManager floating ip functions of a provider region.
//Allocation functions return a ResourceExhaustedError when the pool is empty or the quota is reached.
type FloatingIPManager interface {
	//RequiresDetach tells if an ip must be dissociated before being deleted
	RequiresDetach() bool
	AllocateFromPool(pool string) (*FloatingIP, error)
	//Create allocates a floating ip from the default pool
	Create() (*FloatingIP, error)
	List() ([]FloatingIP, error)
	Associate(ip FloatingIP, serverID string) error
	Dissociate(ip FloatingIP) error
	Delete(id string) error
}
