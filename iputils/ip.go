package iputils

import (
	"encoding/binary"
	"fmt"
	"net"
)

//AnyIPv4 CIDR matching every IPv4 address
const AnyIPv4 = "0.0.0.0/0"

func Itou(ip *net.IP) uint32 {
	return binary.BigEndian.Uint32(ip.To4())
}

func Utoi(u uint32) *net.IP {
	ip := net.IPv4(0, 0, 0, 0)
	binary.BigEndian.PutUint32(ip[12:16], u)
	return &ip
}

func NextIP(ip *net.IP) *net.IP {
	return Utoi(Itou(ip) + 1)
}

func PreviousIP(ip *net.IP) *net.IP {
	return Utoi(Itou(ip) - 1)
}

//ValidateCIDR checks that cidr is a valid IPv4 or IPv6 CIDR notation
func ValidateCIDR(cidr string) error {
	_, _, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR '%s'", cidr)
	}
	return nil
}

//AddressRange first and last usable addresses of an IPv4 network
type AddressRange struct {
	FirstIP net.IP
	LastIP  net.IP
}

//Size number of addresses in the range
func (r *AddressRange) Size() int {
	return int(Itou(&r.LastIP)-Itou(&r.FirstIP)) + 1
}

//Nth returns the n-th address of the range, nil when out of range
func (r *AddressRange) Nth(n int) net.IP {
	if n < 0 || n >= r.Size() {
		return nil
	}
	return *Utoi(Itou(&r.FirstIP) + uint32(n))
}

//GetRange returns the usable addresses of an IPv4 CIDR (network and broadcast addresses excluded)
func GetRange(cidr string) (*AddressRange, error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	if ipnet.IP.To4() == nil {
		return nil, fmt.Errorf("'%s' is not an IPv4 CIDR", cidr)
	}
	network := ipnet.IP.To4()
	ones, bits := ipnet.Mask.Size()
	if bits-ones < 2 {
		return nil, fmt.Errorf("'%s' has no usable address", cidr)
	}
	first := NextIP(&network)
	broadcast := Itou(&network) | (1<<uint(bits-ones) - 1)
	return &AddressRange{
		FirstIP: *first,
		LastIP:  *PreviousIP(Utoi(broadcast)),
	}, nil
}
