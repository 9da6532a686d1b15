package tests

import (
	"fmt"
	"strings"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/red-hat-storage/odf-gotests/internal/disruption"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/daemonset"
	"github.com/red-hat-storage/odf-gotests/pkg/deployment"
	"github.com/red-hat-storage/odf-gotests/pkg/namespace"
	"github.com/red-hat-storage/odf-gotests/pkg/nodes"
	"github.com/red-hat-storage/odf-gotests/pkg/ocpcli"
	"github.com/red-hat-storage/odf-gotests/pkg/pvc"
	"github.com/red-hat-storage/odf-gotests/tests/internal/params"
	"github.com/red-hat-storage/odf-gotests/tests/internal/polarion"
	. "github.com/red-hat-storage/odf-gotests/tests/odf/internal/odfinittools"
	"github.com/red-hat-storage/odf-gotests/tests/odf/internal/odftestparams"
	corev1 "k8s.io/api/core/v1"
)

var storageNodeSelector = map[string]string{"cluster.ocs.openshift.io/openshift-storage": ""}

var _ = Describe(
	"ODF resource disruption",
	Ordered,
	ContinueOnFailure,
	Label(odfparams.LabelDisruptive), func() {
		var (
			disruptions    *disruption.Disruptions
			workloadNS     *namespace.Builder
			workloadClaim  *pvc.Builder
			workloadDeploy *deployment.Builder
		)

		roles, rolesErr := ODFConfig.Roles()

		BeforeAll(func(ctx SpecContext) {
			Expect(rolesErr).ToNot(HaveOccurred(), "Invalid disrupt roles")

			var err error

			By("Creating the workload namespace")
			workloadNS, err = namespace.NewBuilder(ODFConfig.DisruptNamespace, APIClient).
				WithMultipleLabels(params.PrivilegedNSLabels).Create()
			Expect(err).ToNot(HaveOccurred(), "Failed to create namespace %s", ODFConfig.DisruptNamespace)

			By("Creating the workload claim and deployment")
			workloadClaim, err = pvc.NewBuilder(APIClient, odftestparams.WorkloadName, ODFConfig.DisruptNamespace,
				ODFConfig.StorageClass, ODFConfig.WorkloadPVCSize).
				WithVolumeMode(corev1.PersistentVolumeFilesystem).Create()
			Expect(err).ToNot(HaveOccurred(), "Failed to create the workload claim")

			workloadDeploy, err = deployment.NewBuilder(APIClient, odftestparams.WorkloadName, ODFConfig.DisruptNamespace,
				odftestparams.WorkloadLabels, ioContainer()).
				WithVolume(odftestparams.WorkloadName, odftestparams.WorkloadMountPath).Create()
			Expect(err).ToNot(HaveOccurred(), "Failed to create the workload deployment")
			Expect(workloadDeploy.WaitUntilReady(ctx, odftestparams.DefaultTimeout)).To(Succeed(),
				"Workload deployment is not ready")

			disruptions, err = disruption.New(APIClient, ocpcli.New(ocpcli.ExecRunner{}, APIClient.KubeconfigPath))
			Expect(err).ToNot(HaveOccurred(), "Failed to build the disruptions")

			By("Checking ceph is healthy before the disruptions")
			Expect(disruptions.WaitForCephHealthOK(ctx, odfparams.CephHealthTimeout)).To(Succeed())
		})

		AfterAll(func(ctx SpecContext) {
			if workloadDeploy != nil {
				Expect(workloadDeploy.Delete()).To(Succeed())
			}

			if workloadClaim != nil {
				Expect(workloadClaim.Delete()).To(Succeed())
			}

			if workloadNS != nil {
				Expect(workloadNS.DeleteAndWait(ctx, odftestparams.DefaultTimeout)).To(Succeed())
			}
		})

		AfterEach(func(ctx SpecContext) {
			By("Checking the storage nodes, ceph and the workload recovered")
			storageNodes := nodes.NewBuilder(APIClient, storageNodeSelector)
			Expect(storageNodes.Discover(ctx)).To(Succeed())
			Expect(storageNodes.WaitUntilReady(ctx, true, odftestparams.DefaultTimeout)).To(Succeed())

			Expect(disruptions.WaitForCephHealthOK(ctx, odfparams.CephHealthTimeout)).To(Succeed())
			Expect(workloadDeploy.WaitUntilReady(ctx, odftestparams.DefaultTimeout)).To(Succeed())
		})

		for _, role := range roles {
			It(fmt.Sprintf("Delete a %s pod and verify it respins", role),
				polarion.SetProperty("role", string(role)), func(ctx SpecContext) {
					Expect(disruptions.SetResource(ctx, role, disruption.LeaderNone)).To(Succeed())
					Expect(disruptions.ResourceCount()).To(BeNumerically(">", 0), "No running %s pod", role)

					Expect(disruptions.DeleteResource(ctx, 0)).To(Succeed())

					descriptor, err := disruption.Describe(role)
					Expect(err).ToNot(HaveOccurred())

					if descriptor.Owner == disruption.OwnerDaemonSet {
						plugin, err := daemonset.Pull(APIClient, strings.TrimPrefix(descriptor.Selector, "app="),
							descriptor.Namespace)
						Expect(err).ToNot(HaveOccurred())
						Expect(plugin.WaitUntilReady(ctx, odftestparams.DefaultTimeout)).To(Succeed())
					}
				})

			descriptor, err := disruption.Describe(role)
			if err != nil || descriptor.Daemon == "" {
				continue
			}

			It(fmt.Sprintf("Kill the %s daemon and verify it restarts", descriptor.Daemon),
				polarion.SetProperty("role", string(role)), func(ctx SpecContext) {
					Expect(disruptions.SetResource(ctx, role, disruption.LeaderNone)).To(Succeed())
					Expect(disruptions.KillDaemon(ctx, "", int(syscall.SIGKILL), true)).To(Succeed())
				})
		}

		It("Delete the rbd provisioner leader and verify it respins",
			polarion.SetProperty("role", string(disruption.RoleRBDPluginProvisioner)), func(ctx SpecContext) {
				Expect(disruptions.SetResource(ctx, disruption.RoleRBDPluginProvisioner,
					disruption.LeaderProvisioner)).To(Succeed())
				Expect(disruptions.Resources()).To(HaveLen(1), "Expected a single leader pod")

				Expect(disruptions.DeleteResource(ctx, 0)).To(Succeed())
			})
	})

func ioContainer() corev1.Container {
	return corev1.Container{
		Name:  odftestparams.WorkloadName,
		Image: ODFConfig.WorkloadImage,
		Command: []string{"sh", "-c", fmt.Sprintf(
			"while true; do dd if=/dev/urandom of=%s/io bs=1M count=16 conv=fsync; sleep 5; done",
			odftestparams.WorkloadMountPath)},
	}
}
