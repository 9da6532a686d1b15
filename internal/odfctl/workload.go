package odfctl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/red-hat-storage/odf-gotests/internal/dr"
	"github.com/spf13/pflag"
)

// workloadFlags describe one DR workload on the command line.
type workloadFlags struct {
	namespace    string
	workloadType string
	placement    string
	drpc         string
	vrg          string
	pvcInterface string
	pvcs         int
	pods         int
}

func (flags *workloadFlags) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&flags.namespace, "namespace", "", "namespace of the workload")
	flagSet.StringVar(&flags.workloadType, "workload-type", string(dr.WorkloadSubscription),
		"subscription, appset or discovered")
	flagSet.StringVar(&flags.placement, "placement", "", "placement of the workload")
	flagSet.StringVar(&flags.drpc, "drpc", "", "DRPlacementControl of the workload, <placement>-drpc when empty")
	flagSet.StringVar(&flags.vrg, "vrg", "", "VolumeReplicationGroup of the workload, the DRPC name when empty")
	flagSet.StringVar(&flags.pvcInterface, "pvc-interface", string(dr.PVCBlock), "block or filesystem")
	flagSet.IntVar(&flags.pvcs, "pvc-count", 0, "number of claims of the workload")
	flagSet.IntVar(&flags.pods, "pod-count", 0, "number of pods of the workload")
}

func (flags *workloadFlags) workload() (dr.DRWorkload, error) {
	workload := dr.DRWorkload{
		Namespace:     flags.namespace,
		Type:          dr.WorkloadType(flags.workloadType),
		PlacementName: flags.placement,
		DRPCName:      flags.drpc,
		VRGName:       flags.vrg,
		PVCInterface:  dr.PVCInterface(flags.pvcInterface),
		PVCCount:      flags.pvcs,
		PodCount:      flags.pods,
	}

	if workload.DRPCName == "" && workload.PlacementName != "" {
		workload.DRPCName = workload.PlacementName + "-drpc"
	}

	if workload.VRGName == "" {
		workload.VRGName = workload.DRPCName
	}

	return workload, workload.Validate()
}

// ParseWorkload reads a workload given as comma separated key=value pairs, for example
// "namespace=busybox-1,type=subscription,placement=busybox-1-placement-1,pvcs=2,pods=2".
func ParseWorkload(value string) (dr.DRWorkload, error) {
	flags := workloadFlags{workloadType: string(dr.WorkloadSubscription), pvcInterface: string(dr.PVCBlock)}

	for _, pair := range strings.Split(value, ",") {
		key, field, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return dr.DRWorkload{}, fmt.Errorf("workload field %q is not key=value", pair)
		}

		var err error

		switch key {
		case "namespace":
			flags.namespace = field
		case "type":
			flags.workloadType = field
		case "placement":
			flags.placement = field
		case "drpc":
			flags.drpc = field
		case "vrg":
			flags.vrg = field
		case "interface":
			flags.pvcInterface = field
		case "pvcs":
			flags.pvcs, err = strconv.Atoi(field)
		case "pods":
			flags.pods, err = strconv.Atoi(field)
		default:
			return dr.DRWorkload{}, fmt.Errorf("unknown workload field %q", key)
		}

		if err != nil {
			return dr.DRWorkload{}, fmt.Errorf("workload field %s: %w", key, err)
		}
	}

	return flags.workload()
}
