package hubrecovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/red-hat-storage/odf-gotests/pkg/polling"
	velerov1 "github.com/vmware-tanzu/velero/pkg/apis/velero/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	runtimeClient "sigs.k8s.io/controller-runtime/pkg/client"
)

// ACM Restore phases.
const (
	restorePhaseFinished          = "Finished"
	restorePhaseFinishedWithError = "FinishedWithErrors"
	restorePhaseError             = "Error"
)

// ConfigureRDRHubRecovery schedules the ACM backup on the active hub and starts the passive sync restore on the
// passive hub. Existing resources are kept.
func (recovery *Recovery) ConfigureRDRHubRecovery(ctx context.Context) error {
	activeHub, activeClient, err := recovery.activeHub()
	if err != nil {
		return err
	}

	passiveHub, passiveClient, err := recovery.passiveHub()
	if err != nil {
		return err
	}

	glog.V(odfparams.LogLevel).Infof("Creating BackupSchedule %s on %s", odfparams.ACMBackupScheduleName, activeHub)

	err = createIfMissing(ctx, activeClient, odfparams.ACMBackupScheduleGVR, odfparams.ACMBackupNamespace,
		buildBackupSchedule())
	if err != nil {
		return fmt.Errorf("failed to configure backup on %s: %w", activeHub, err)
	}

	glog.V(odfparams.LogLevel).Infof("Creating passive sync Restore %s on %s", odfparams.ACMPassiveRestoreName, passiveHub)

	err = createIfMissing(ctx, passiveClient, odfparams.ACMRestoreGVR, odfparams.ACMBackupNamespace,
		buildPassiveRestore())
	if err != nil {
		return fmt.Errorf("failed to configure passive restore on %s: %w", passiveHub, err)
	}

	return nil
}

// RestoreBackup activates the managed clusters on the passive hub and makes it the active hub of the registry.
// The active hub must be down. The hub state moves to HubRestoring only once the activation Restore exists, so a
// failed call can be retried.
func (recovery *Recovery) RestoreBackup(ctx context.Context) error {
	if state := recovery.hub.State(); state != HubDown {
		return fmt.Errorf("cannot restore backup, hub is %s: %w", state, ErrInvalidTransition)
	}

	passiveIndex := recovery.Registry.PassiveACMIndex()

	passiveHub, hubClient, err := recovery.passiveHub()
	if err != nil {
		return err
	}

	restores := hubClient.Dynamic.Resource(odfparams.ACMRestoreGVR).Namespace(odfparams.ACMBackupNamespace)

	err = restores.Delete(ctx, odfparams.ACMPassiveRestoreName, metaV1.DeleteOptions{})
	if err != nil && !k8serrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete passive sync restore on %s: %w", passiveHub, err)
	}

	glog.V(odfparams.LogLevel).Infof("Creating activation Restore %s on %s", odfparams.ACMActivationRestoreName,
		passiveHub)

	err = createIfMissing(ctx, hubClient, odfparams.ACMRestoreGVR, odfparams.ACMBackupNamespace,
		buildActivationRestore())
	if err != nil {
		return fmt.Errorf("failed to restore backup on %s: %w", passiveHub, err)
	}

	if err := recovery.hub.Transition(HubRestoring); err != nil {
		return err
	}

	return recovery.Registry.SetActiveACM(passiveIndex)
}

// VerifyRestoreIsCompleted waits until the activation Restore of the active hub finished and all its velero
// restores completed.
func (recovery *Recovery) VerifyRestoreIsCompleted(ctx context.Context) error {
	activeHub, hubClient, err := recovery.activeHub()
	if err != nil {
		return err
	}

	restores := hubClient.Dynamic.Resource(odfparams.ACMRestoreGVR).Namespace(odfparams.ACMBackupNamespace)

	err = polling.PollUntil(ctx, recovery.Timeouts.Restore, recovery.Interval,
		func(ctx context.Context) (bool, error) {
			restore, err := restores.Get(ctx, odfparams.ACMActivationRestoreName, metaV1.GetOptions{})
			if err != nil {
				return false, err
			}

			phase, _, _ := unstructured.NestedString(restore.Object, "status", "phase")
			glog.V(odfparams.LogLevel).Infof("Restore %s on %s is %q", odfparams.ACMActivationRestoreName,
				activeHub, phase)

			switch phase {
			case restorePhaseFinished:
				return true, nil
			case restorePhaseError, restorePhaseFinishedWithError:
				message, _, _ := unstructured.NestedString(restore.Object, "status", "lastMessage")

				return false, fmt.Errorf("restore %s on %s ended in %s: %s",
					odfparams.ACMActivationRestoreName, activeHub, phase, message)
			default:
				return false, nil
			}
		},
		polling.WithName(fmt.Sprintf("restore %s on %s", odfparams.ACMActivationRestoreName, activeHub)),
		polling.WithRetryOn(k8serrors.IsNotFound))
	if err != nil {
		return err
	}

	return polling.PollUntil(ctx, recovery.Timeouts.Restore, recovery.Interval,
		func(ctx context.Context) (bool, error) {
			return veleroRestoresCompleted(ctx, hubClient)
		},
		polling.WithName(fmt.Sprintf("velero restores on %s", activeHub)))
}

// veleroRestoresCompleted reports whether the activation restore created velero restores and all completed.
func veleroRestoresCompleted(ctx context.Context, hubClient *clients.Settings) (bool, error) {
	veleroRestores := &velerov1.RestoreList{}

	err := hubClient.Client.List(ctx, veleroRestores, runtimeClient.InNamespace(odfparams.VeleroNamespace))
	if err != nil {
		return false, err
	}

	found := 0

	for _, restore := range veleroRestores.Items {
		if !strings.HasPrefix(restore.Name, odfparams.ACMActivationRestoreName+"-") {
			continue
		}

		found++

		switch restore.Status.Phase {
		case velerov1.RestorePhaseCompleted:
		case velerov1.RestorePhaseFailed, velerov1.RestorePhaseFailedValidation, velerov1.RestorePhasePartiallyFailed:
			return false, fmt.Errorf("velero restore %s is %s", restore.Name, restore.Status.Phase)
		default:
			glog.V(odfparams.LogLevel).Infof("Velero restore %s is %q", restore.Name, restore.Status.Phase)

			return false, nil
		}
	}

	return found > 0, nil
}

func createIfMissing(
	ctx context.Context,
	apiClient *clients.Settings,
	gvr schema.GroupVersionResource,
	namespace string,
	object *unstructured.Unstructured) error {
	var err error

	if namespace == "" {
		_, err = apiClient.Dynamic.Resource(gvr).Create(ctx, object, metaV1.CreateOptions{})
	} else {
		_, err = apiClient.Dynamic.Resource(gvr).Namespace(namespace).Create(ctx, object, metaV1.CreateOptions{})
	}

	if k8serrors.IsAlreadyExists(err) {
		glog.V(odfparams.LogLevel).Infof("%s %s already exists", gvr.Resource, object.GetName())

		return nil
	}

	return err
}

func buildBackupSchedule() *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "cluster.open-cluster-management.io/v1beta1",
		"kind":       "BackupSchedule",
		"metadata": map[string]interface{}{
			"name":      odfparams.ACMBackupScheduleName,
			"namespace": odfparams.ACMBackupNamespace,
		},
		"spec": map[string]interface{}{
			"veleroSchedule":           "0 */1 * * *",
			"veleroTtl":                "120h",
			"useManagedServiceAccount": true,
		},
	}}
}

func buildPassiveRestore() *unstructured.Unstructured {
	return buildRestore(odfparams.ACMPassiveRestoreName, map[string]interface{}{
		"syncRestoreWithNewBackups":       true,
		"restoreSyncInterval":             "10m",
		"cleanupBeforeRestore":            "CleanupRestored",
		"veleroManagedClustersBackupName": "skip",
		"veleroCredentialsBackupName":     "latest",
		"veleroResourcesBackupName":       "latest",
	})
}

func buildActivationRestore() *unstructured.Unstructured {
	return buildRestore(odfparams.ACMActivationRestoreName, map[string]interface{}{
		"cleanupBeforeRestore":            "CleanupRestored",
		"veleroManagedClustersBackupName": "latest",
		"veleroCredentialsBackupName":     "latest",
		"veleroResourcesBackupName":       "latest",
	})
}

func buildRestore(name string, spec map[string]interface{}) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "cluster.open-cluster-management.io/v1beta1",
		"kind":       "Restore",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": odfparams.ACMBackupNamespace,
		},
		"spec": spec,
	}}
}

func buildKlusterletConfig() *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "config.open-cluster-management.io/v1alpha1",
		"kind":       "KlusterletConfig",
		"metadata": map[string]interface{}{
			"name": odfparams.KlusterletConfigName,
		},
		"spec": map[string]interface{}{
			"appliedManifestWorkEvictionGracePeriod": "24h",
		},
	}}
}
