package tests

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/red-hat-storage/odf-gotests/internal/dr"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/tests/internal/polarion"
	. "github.com/red-hat-storage/odf-gotests/tests/odf/internal/odfinittools"
	"github.com/red-hat-storage/odf-gotests/tests/odf/internal/odftestparams"
)

var _ = Describe(
	"DR failover and relocate",
	Ordered,
	Label(odfparams.LabelDR), func() {
		var (
			orchestrator *dr.Orchestrator
			workloads    []dr.DRWorkload
			primaries    = map[string]string{}
			secondaries  = map[string]string{}
		)

		BeforeAll(func() {
			var err error

			By("Reading the DR workloads")
			workloads, err = ODFConfig.Workloads()
			Expect(err).ToNot(HaveOccurred(), "Invalid DR workloads")

			if len(workloads) == 0 {
				Skip("No DR workload configured, set ODF_DR_WORKLOADS")
			}

			By("Checking an active hub is configured")
			Expect(Registry.ActiveACMIndex()).To(BeNumerically(">=", 0), "No active ACM hub in the configuration")

			orchestrator = dr.NewOrchestrator(Registry)
		})

		It("Verify the workloads run on their primary cluster", polarion.SetProperty("step", "deploy"),
			func(ctx SpecContext) {
				for _, workload := range workloads {
					primary, err := orchestrator.CurrentPrimary(ctx, workload)
					Expect(err).ToNot(HaveOccurred(), "Failed to find primary of %s", workload)

					secondary, err := orchestrator.CurrentSecondary(ctx, workload)
					Expect(err).ToNot(HaveOccurred(), "Failed to find secondary of %s", workload)

					primaries[workload.Namespace] = primary
					secondaries[workload.Namespace] = secondary

					By("Waiting for the resources of " + workload.String() + " on " + primary)
					err = orchestrator.WaitForAllResourcesCreation(ctx, primary, workload.PVCCount, workload.PodCount,
						workload.VRGNamespace(), odftestparams.DefaultTimeout, workload.VRGName)
					Expect(err).ToNot(HaveOccurred(), "Resources of %s are not ready on %s", workload, primary)
				}
			})

		It("Verify the block pool mirroring is healthy", polarion.SetProperty("step", "mirroring"),
			func(ctx SpecContext) {
				if !ODFConfig.CheckMirroring {
					Skip("Mirroring check disabled")
				}

				replaying := map[string]int{}
				for _, workload := range workloads {
					replaying[primaries[workload.Namespace]] += workload.PVCCount
				}

				for _, cluster := range Registry.NonACMClusters() {
					err := orchestrator.WaitForMirroringStatusOK(ctx, cluster.ClusterName,
						replaying[cluster.ClusterName], odftestparams.DefaultTimeout)
					Expect(err).ToNot(HaveOccurred(), "Mirroring is not healthy on %s", cluster)
				}
			})

		It("Fail the workloads over to the secondary cluster", polarion.SetProperty("step", "failover"),
			func(ctx SpecContext) {
				for _, workload := range workloads {
					By("Failing " + workload.String() + " over to " + secondaries[workload.Namespace])
					err := orchestrator.Failover(ctx, secondaries[workload.Namespace], workload,
						primaries[workload.Namespace])
					Expect(err).ToNot(HaveOccurred(), "Failover of %s failed", workload)

					current, err := orchestrator.CurrentPrimary(ctx, workload)
					Expect(err).ToNot(HaveOccurred(), "Failed to find primary of %s", workload)
					Expect(current).To(Equal(secondaries[workload.Namespace]))
				}
			}, SpecTimeout(odftestparams.TransitionTimeout))

		It("Relocate the workloads back to the preferred cluster", polarion.SetProperty("step", "relocate"),
			func(ctx SpecContext) {
				if ODFConfig.SkipRelocate {
					Skip("Relocate disabled")
				}

				for _, workload := range workloads {
					By("Relocating " + workload.String() + " to " + primaries[workload.Namespace])
					err := orchestrator.Relocate(ctx, primaries[workload.Namespace], workload,
						secondaries[workload.Namespace])
					Expect(err).ToNot(HaveOccurred(), "Relocate of %s failed", workload)
				}
			}, SpecTimeout(odftestparams.TransitionTimeout))
	})

