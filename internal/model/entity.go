// Package model provides data models for the fleet console.
package model

import "time"

// EntityKind identifies the type of a managed object.
type EntityKind string

const (
	KindVM   EntityKind = "vm"   // virtual machine
	KindHost EntityKind = "host" // physical host
	KindSR   EntityKind = "sr"   // storage repository
	KindVDI  EntityKind = "vdi"  // virtual disk image
	KindPool EntityKind = "pool" // resource pool
	KindVBD  EntityKind = "vbd"  // virtual block device (VM disk interface)
	KindVIF  EntityKind = "vif"  // virtual network interface
	KindPIF  EntityKind = "pif"  // physical network interface
)

// TableKinds lists the kinds rendered as fleet tables, in report order.
var TableKinds = []EntityKind{KindPool, KindHost, KindVM, KindSR, KindVDI}

// Title returns the plural table heading for the kind.
func (k EntityKind) Title() string {
	switch k {
	case KindVM:
		return "Virtual Machines"
	case KindHost:
		return "Hosts"
	case KindSR:
		return "Storage Repositories"
	case KindVDI:
		return "Virtual Disks"
	case KindPool:
		return "Pool"
	default:
		return string(k)
	}
}

// VM is a read-only snapshot of a virtual machine record.
type VM struct {
	Ref               string          `yaml:"ref" json:"ref"`
	UUID              string          `yaml:"uuid" json:"uuid"`
	NameLabel         string          `yaml:"name_label" json:"name_label"`
	PowerState        string          `yaml:"power_state" json:"power_state"`
	IsATemplate       bool            `yaml:"is_a_template" json:"is_a_template"`
	IsASnapshot       bool            `yaml:"is_a_snapshot" json:"is_a_snapshot"`
	IsControlDomain   bool            `yaml:"is_control_domain" json:"is_control_domain"`
	HARestartPriority RestartPriority `yaml:"ha_restart_priority" json:"ha_restart_priority"`
	Metrics           string          `yaml:"metrics" json:"metrics"`             // VM_metrics ref
	GuestMetrics      string          `yaml:"guest_metrics" json:"guest_metrics"` // VM_guest_metrics ref
	VBDs              []string        `yaml:"vbds" json:"vbds"`
	VIFs              []string        `yaml:"vifs" json:"vifs"`
	ResidentOn        string          `yaml:"resident_on" json:"resident_on"` // host ref
}

// IsARealVM returns false for templates, snapshots and control domains.
func (v *VM) IsARealVM() bool {
	return !v.IsATemplate && !v.IsASnapshot && !v.IsControlDomain
}

// VMMetrics is the metrics record attached to a VM.
type VMMetrics struct {
	Ref          string `yaml:"ref" json:"ref"`
	VCPUsNumber  int64  `yaml:"vcpus_number" json:"vcpus_number"`
	MemoryActual int64  `yaml:"memory_actual" json:"memory_actual"` // bytes
}

// VMGuestMetrics holds what the guest agent reports about itself.
type VMGuestMetrics struct {
	Ref      string            `yaml:"ref" json:"ref"`
	Networks map[string]string `yaml:"networks" json:"networks"` // e.g. "0/ip" -> "10.0.0.5"
}

// Host is a read-only snapshot of a physical host record.
type Host struct {
	Ref       string   `yaml:"ref" json:"ref"`
	UUID      string   `yaml:"uuid" json:"uuid"`
	NameLabel string   `yaml:"name_label" json:"name_label"`
	Address   string   `yaml:"address" json:"address"`
	HostCPUs  []string `yaml:"host_cpus" json:"host_cpus"`
	PIFs      []string `yaml:"pifs" json:"pifs"`
}

// VBD connects a VM to a disk.
type VBD struct {
	Ref    string `yaml:"ref" json:"ref"`
	Device string `yaml:"device" json:"device"` // e.g. xvda
	VDI    string `yaml:"vdi" json:"vdi"`
}

// VIF connects a VM to a network.
type VIF struct {
	Ref    string `yaml:"ref" json:"ref"`
	Device string `yaml:"device" json:"device"` // e.g. 0
	MAC    string `yaml:"mac" json:"mac"`
}

// PIF is a host network interface. Bonds and VLANs are not physical.
type PIF struct {
	Ref      string `yaml:"ref" json:"ref"`
	Device   string `yaml:"device" json:"device"` // e.g. eth0
	Physical bool   `yaml:"physical" json:"physical"`
}

// VDI is a virtual disk image.
type VDI struct {
	Ref         string `yaml:"ref" json:"ref"`
	UUID        string `yaml:"uuid" json:"uuid"`
	NameLabel   string `yaml:"name_label" json:"name_label"`
	VirtualSize int64  `yaml:"virtual_size" json:"virtual_size"` // bytes
	SR          string `yaml:"sr" json:"sr"`
}

// SR is a storage repository.
type SR struct {
	Ref       string   `yaml:"ref" json:"ref"`
	UUID      string   `yaml:"uuid" json:"uuid"`
	NameLabel string   `yaml:"name_label" json:"name_label"`
	Type      string   `yaml:"type" json:"type"`
	VDIs      []string `yaml:"vdis" json:"vdis"`
}

// Pool is a resource pool. A connection always has exactly one.
type Pool struct {
	Ref             string   `yaml:"ref" json:"ref"`
	UUID            string   `yaml:"uuid" json:"uuid"`
	NameLabel       string   `yaml:"name_label" json:"name_label"`
	Master          string   `yaml:"master" json:"master"`
	HAEnabled       bool     `yaml:"ha_enabled" json:"ha_enabled"`
	HAPlanExistsFor int64    `yaml:"ha_plan_exists_for" json:"ha_plan_exists_for"` // host failures tolerated
	HAStatefiles    []string `yaml:"ha_statefiles" json:"ha_statefiles"`           // VDI refs of heartbeat volumes
}

// RestartPriority is the HA restart priority of a VM.
type RestartPriority string

const (
	RestartPriorityRestart      RestartPriority = "restart"
	RestartPriorityBestEffort   RestartPriority = "best-effort"
	RestartPriorityDoNotRestart RestartPriority = ""
)

// DisplayName returns the human-readable name of the restart priority.
func (p RestartPriority) DisplayName() string {
	switch p {
	case RestartPriorityRestart:
		return "Restart"
	case RestartPriorityBestEffort:
		return "Restart if possible"
	case RestartPriorityDoNotRestart:
		return "Do not restart"
	default:
		return "Unknown"
	}
}

// Message is a server-side alert raised against an object in the pool.
type Message struct {
	Ref       string     `yaml:"ref" json:"ref"`
	UUID      string     `yaml:"uuid" json:"uuid"`
	Name      string     `yaml:"name" json:"name"`         // e.g. HA_HOST_FAILED
	Priority  int64      `yaml:"priority" json:"priority"` // 1..5, anything else is unknown
	Class     EntityKind `yaml:"class" json:"class"`
	ObjUUID   string     `yaml:"obj_uuid" json:"obj_uuid"`
	Timestamp time.Time  `yaml:"timestamp" json:"timestamp"`
	Body      string     `yaml:"body" json:"body"`
}
