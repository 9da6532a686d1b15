package deployment

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	v1 "k8s.io/api/apps/v1"
	coreV1 "k8s.io/api/core/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Builder provides struct for deployment object containing connection to the cluster and the deployment definitions.
type Builder struct {
	// Deployment definition. Used to create the deployment object.
	Definition *v1.Deployment
	// Created deployment object
	Object *v1.Deployment
	// Used in functions that define or mutate deployment definition. errorMsg is processed before the deployment
	// object is created.
	errorMsg  string
	apiClient *clients.Settings
}

// NewBuilder creates a new instance of Builder.
func NewBuilder(
	apiClient *clients.Settings, name, nsname string, labels map[string]string, containerSpec coreV1.Container) *Builder {
	glog.V(100).Infof(
		"Initializing new deployment structure with the following params: name: %s, namespace: %s, labels: %s",
		name, nsname, labels)

	builder := Builder{
		apiClient: apiClient,
		Definition: &v1.Deployment{
			Spec: v1.DeploymentSpec{
				Selector: &metaV1.LabelSelector{
					MatchLabels: labels,
				},
				Template: coreV1.PodTemplateSpec{
					ObjectMeta: metaV1.ObjectMeta{
						Labels: labels,
					},
					Spec: coreV1.PodSpec{
						Containers: []coreV1.Container{containerSpec},
					},
				},
			},
			ObjectMeta: metaV1.ObjectMeta{
				Name:      name,
				Namespace: nsname,
			},
		},
	}

	if name == "" {
		builder.errorMsg = "deployment 'name' cannot be empty"
	}

	if nsname == "" {
		builder.errorMsg = "deployment 'namespace' cannot be empty"
	}

	if len(labels) == 0 {
		builder.errorMsg = "deployment 'labels' cannot be empty"
	}

	return &builder
}

// Pull loads an existing deployment into a Builder.
func Pull(apiClient *clients.Settings, name, nsname string) (*Builder, error) {
	glog.V(100).Infof("Pulling existing deployment %s in namespace %s", name, nsname)

	builder := &Builder{
		apiClient: apiClient,
		Definition: &v1.Deployment{
			ObjectMeta: metaV1.ObjectMeta{
				Name:      name,
				Namespace: nsname,
			},
		},
	}

	if name == "" || nsname == "" {
		return nil, fmt.Errorf("deployment 'name' and 'namespace' cannot be empty")
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("deployment %s does not exist in namespace %s", name, nsname)
	}

	builder.Definition = builder.Object

	return builder, nil
}

// WithReplicas sets the desired number of replicas in the deployment definition.
func (builder *Builder) WithReplicas(replicas int32) *Builder {
	if builder.errorMsg != "" {
		return builder
	}

	builder.Definition.Spec.Replicas = &replicas

	return builder
}

// WithVolume mounts the claim claimName at mountPath in the first container.
func (builder *Builder) WithVolume(claimName, mountPath string) *Builder {
	if builder.errorMsg != "" {
		return builder
	}

	if claimName == "" || mountPath == "" {
		builder.errorMsg = "deployment volume needs a claim name and a mount path"

		return builder
	}

	podSpec := &builder.Definition.Spec.Template.Spec
	podSpec.Volumes = append(podSpec.Volumes, coreV1.Volume{
		Name: claimName,
		VolumeSource: coreV1.VolumeSource{
			PersistentVolumeClaim: &coreV1.PersistentVolumeClaimVolumeSource{ClaimName: claimName},
		},
	})
	podSpec.Containers[0].VolumeMounts = append(podSpec.Containers[0].VolumeMounts,
		coreV1.VolumeMount{Name: claimName, MountPath: mountPath})

	return builder
}

// Create generates a deployment in cluster and stores the created object in struct.
func (builder *Builder) Create() (*Builder, error) {
	glog.V(100).Infof("Creating deployment %s in namespace %s", builder.Definition.Name, builder.Definition.Namespace)

	if builder.errorMsg != "" {
		return nil, fmt.Errorf("%s", builder.errorMsg)
	}

	var err error
	if !builder.Exists() {
		builder.Object, err = builder.apiClient.Deployments(builder.Definition.Namespace).Create(
			context.TODO(), builder.Definition, metaV1.CreateOptions{})
	}

	return builder, err
}

// Scale sets the replicas of the existing deployment.
func (builder *Builder) Scale(replicas int32) error {
	glog.V(100).Infof("Scaling deployment %s in namespace %s to %d",
		builder.Definition.Name, builder.Definition.Namespace, replicas)

	if !builder.Exists() {
		return fmt.Errorf("deployment %s cannot be scaled because it does not exist", builder.Definition.Name)
	}

	builder.Object.Spec.Replicas = &replicas

	var err error
	builder.Object, err = builder.apiClient.Deployments(builder.Definition.Namespace).Update(
		context.TODO(), builder.Object, metaV1.UpdateOptions{})

	return err
}

// IsReady reports whether all desired replicas are available.
func (builder *Builder) IsReady() bool {
	if !builder.Exists() || builder.Object == nil {
		return false
	}

	desired := int32(1)
	if builder.Object.Spec.Replicas != nil {
		desired = *builder.Object.Spec.Replicas
	}

	return builder.Object.Status.AvailableReplicas == desired && builder.Object.Status.ReadyReplicas == desired
}

// WaitUntilReady waits until all desired replicas are available.
func (builder *Builder) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, time.Second, timeout, true, func(context.Context) (bool, error) {
		return builder.IsReady(), nil
	})
}

// Delete removes a deployment.
func (builder *Builder) Delete() error {
	glog.V(100).Infof("Deleting deployment %s in namespace %s",
		builder.Definition.Name, builder.Definition.Namespace)

	if !builder.Exists() {
		return nil
	}

	err := builder.apiClient.Deployments(builder.Definition.Namespace).Delete(
		context.TODO(), builder.Object.Name, metaV1.DeleteOptions{})
	if err != nil {
		return err
	}

	builder.Object = nil

	return nil
}

// Exists checks whether the given deployment exists.
func (builder *Builder) Exists() bool {
	var err error
	builder.Object, err = builder.apiClient.Deployments(builder.Definition.Namespace).Get(
		context.TODO(), builder.Definition.Name, metaV1.GetOptions{})

	return err == nil
}
