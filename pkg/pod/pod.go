package pod

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	v1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
)

// Builder provides a struct for an existing pod object of one cluster.
type Builder struct {
	// Definition of the pod as last read from the cluster.
	Definition *v1.Pod
	// Object is the pod read from the cluster, nil once deleted.
	Object *v1.Pod
	// Used to store latest error message upon defining or mutating pod definition.
	errorMsg string
	// api client to interact with the cluster.
	apiClient *clients.Settings
}

// Pull loads an existing pod into a Builder.
func Pull(apiClient *clients.Settings, name, nsName string) (*Builder, error) {
	glog.V(100).Infof("Pulling existing pod %s in namespace %s", name, nsName)

	if apiClient == nil {
		return nil, fmt.Errorf("pod %s/%s cannot be pulled with a nil apiClient", nsName, name)
	}

	builder := &Builder{
		apiClient: apiClient,
		Definition: &v1.Pod{
			ObjectMeta: metaV1.ObjectMeta{
				Name:      name,
				Namespace: nsName,
			},
		},
	}

	if name == "" {
		builder.errorMsg = "pod's name is empty"
	}

	if nsName == "" {
		builder.errorMsg = "namespace's name is empty"
	}

	if builder.errorMsg != "" {
		return nil, fmt.Errorf("failed to pull pod: %s", builder.errorMsg)
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("pod %s does not exist in namespace %s", name, nsName)
	}

	builder.Definition = builder.Object

	return builder, nil
}

// Name returns the pod name.
func (builder *Builder) Name() string {
	return builder.Definition.Name
}

// NodeName returns the node the pod was scheduled on.
func (builder *Builder) NodeName() string {
	if builder.Object == nil {
		return ""
	}

	return builder.Object.Spec.NodeName
}

// IsRunning reports whether the last read pod object is in the Running phase.
func (builder *Builder) IsRunning() bool {
	return builder.Object != nil && builder.Object.Status.Phase == v1.PodRunning
}

// Delete removes the pod object and resets the builder object.
func (builder *Builder) Delete() (*Builder, error) {
	glog.V(100).Infof("Deleting pod %s in namespace %s", builder.Definition.Name, builder.Definition.Namespace)

	if !builder.Exists() {
		return builder, fmt.Errorf("pod cannot be deleted because it does not exist")
	}

	err := builder.apiClient.Pods(builder.Definition.Namespace).Delete(
		context.TODO(), builder.Object.Name, metaV1.DeleteOptions{})

	if err != nil {
		return builder, fmt.Errorf("can not delete pod: %w", err)
	}

	builder.Object = nil

	return builder, nil
}

// DeleteAndWait deletes the pod object and waits until the pod is deleted.
func (builder *Builder) DeleteAndWait(ctx context.Context, timeout time.Duration) (*Builder, error) {
	builder, err := builder.Delete()
	if err != nil {
		return builder, err
	}

	return builder, builder.WaitUntilDeleted(ctx, timeout)
}

// WaitUntilRunning waits for the duration of the defined timeout or until the pod is running.
func (builder *Builder) WaitUntilRunning(ctx context.Context, timeout time.Duration) error {
	return builder.WaitUntilInStatus(ctx, v1.PodRunning, timeout)
}

// WaitUntilInStatus waits for the duration of the defined timeout or until the pod gets to a specific status.
func (builder *Builder) WaitUntilInStatus(ctx context.Context, status v1.PodPhase, timeout time.Duration) error {
	if builder.errorMsg != "" {
		return fmt.Errorf("%s", builder.errorMsg)
	}

	return wait.PollUntilContextTimeout(ctx, time.Second, timeout, true, func(ctx context.Context) (bool, error) {
		updatePod, err := builder.apiClient.Pods(builder.Definition.Namespace).Get(
			ctx, builder.Definition.Name, metaV1.GetOptions{})
		if err != nil {
			return false, nil
		}

		builder.Object = updatePod

		return updatePod.Status.Phase == status, nil
	})
}

// WaitUntilDeleted waits for the duration of the defined timeout or until the pod is deleted.
func (builder *Builder) WaitUntilDeleted(ctx context.Context, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, time.Second, timeout, true, func(ctx context.Context) (bool, error) {
		_, err := builder.apiClient.Pods(builder.Definition.Namespace).Get(
			ctx, builder.Definition.Name, metaV1.GetOptions{})
		if err == nil {
			glog.V(100).Infof("pod %s/%s still present", builder.Definition.Namespace, builder.Definition.Name)

			return false, nil
		}

		if k8serrors.IsNotFound(err) {
			glog.V(100).Infof("pod %s/%s is gone", builder.Definition.Namespace, builder.Definition.Name)

			return true, nil
		}

		glog.V(100).Infof("failed to get pod %s/%s: %v", builder.Definition.Namespace, builder.Definition.Name, err)

		return false, err
	})
}

// ExecCommand runs command in the pod and returns the buffer output. The first container is used when no
// container name is given.
func (builder *Builder) ExecCommand(
	ctx context.Context, command []string, containerName ...string) (bytes.Buffer, error) {
	var (
		stdout bytes.Buffer
		stderr bytes.Buffer
		cName  string
	)

	if builder.Object == nil {
		return stdout, fmt.Errorf("cannot exec in pod %s which was not pulled", builder.Definition.Name)
	}

	if len(containerName) > 0 {
		cName = containerName[0]
	} else {
		cName = builder.Object.Spec.Containers[0].Name
	}

	if builder.apiClient.Config == nil {
		return stdout, fmt.Errorf("cannot exec in pod %s without a rest config", builder.Definition.Name)
	}

	req := builder.apiClient.CoreV1Interface.RESTClient().
		Post().
		Namespace(builder.Object.Namespace).
		Resource("pods").
		Name(builder.Object.Name).
		SubResource("exec").
		VersionedParams(&v1.PodExecOptions{
			Container: cName,
			Command:   command,
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)

	exec, err := remotecommand.NewSPDYExecutor(builder.apiClient.Config, "POST", req.URL())
	if err != nil {
		return stdout, err
	}

	err = exec.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		return stdout, fmt.Errorf("command %v failed in pod %s: %w: %s", command, builder.Object.Name, err, stderr.String())
	}

	return stdout, nil
}

// Exists checks whether the given pod exists.
func (builder *Builder) Exists() bool {
	var err error
	builder.Object, err = builder.apiClient.Pods(builder.Definition.Namespace).Get(
		context.TODO(), builder.Definition.Name, metaV1.GetOptions{})

	return err == nil
}
