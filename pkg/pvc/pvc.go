package pvc

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Builder provides struct for persistentVolumeClaim object containing connection to the cluster and the
// persistentVolumeClaim definition.
type Builder struct {
	// PersistentVolumeClaim definition. Used to create the claim.
	Definition *v1.PersistentVolumeClaim
	// Created claim object.
	Object    *v1.PersistentVolumeClaim
	errorMsg  string
	apiClient *clients.Settings
}

// NewBuilder creates a new instance of Builder requesting size from storageClass with ReadWriteOnce access.
func NewBuilder(apiClient *clients.Settings, name, nsname, storageClass, size string) *Builder {
	glog.V(100).Infof("Initializing new pvc %s in namespace %s with storageclass %s and size %s",
		name, nsname, storageClass, size)

	builder := &Builder{
		apiClient: apiClient,
		Definition: &v1.PersistentVolumeClaim{
			ObjectMeta: metaV1.ObjectMeta{
				Name:      name,
				Namespace: nsname,
			},
			Spec: v1.PersistentVolumeClaimSpec{
				AccessModes:      []v1.PersistentVolumeAccessMode{v1.ReadWriteOnce},
				StorageClassName: &storageClass,
			},
		},
	}

	quantity, err := resource.ParseQuantity(size)
	if err != nil {
		builder.errorMsg = fmt.Sprintf("invalid pvc size %q: %v", size, err)
	} else {
		builder.Definition.Spec.Resources = v1.VolumeResourceRequirements{
			Requests: v1.ResourceList{v1.ResourceStorage: quantity},
		}
	}

	if storageClass == "" {
		builder.errorMsg = "pvc 'storageClass' cannot be empty"
	}

	if name == "" {
		builder.errorMsg = "pvc 'name' cannot be empty"
	}

	if nsname == "" {
		builder.errorMsg = "pvc 'namespace' cannot be empty"
	}

	return builder
}

// WithVolumeMode sets Block or Filesystem volume mode.
func (builder *Builder) WithVolumeMode(mode v1.PersistentVolumeMode) *Builder {
	if builder.errorMsg != "" {
		return builder
	}

	builder.Definition.Spec.VolumeMode = &mode

	return builder
}

// WithAccessMode replaces the access modes of the claim.
func (builder *Builder) WithAccessMode(mode v1.PersistentVolumeAccessMode) *Builder {
	if builder.errorMsg != "" {
		return builder
	}

	builder.Definition.Spec.AccessModes = []v1.PersistentVolumeAccessMode{mode}

	return builder
}

// WithLabel adds a label, e.g. the label selected by a DR protected application.
func (builder *Builder) WithLabel(key, value string) *Builder {
	if builder.errorMsg != "" {
		return builder
	}

	if builder.Definition.Labels == nil {
		builder.Definition.Labels = map[string]string{}
	}

	builder.Definition.Labels[key] = value

	return builder
}

// Create creates the claim unless it already exists.
func (builder *Builder) Create() (*Builder, error) {
	if builder.errorMsg != "" {
		return nil, fmt.Errorf("%s", builder.errorMsg)
	}

	var err error
	if !builder.Exists() {
		builder.Object, err = builder.apiClient.PersistentVolumeClaims(builder.Definition.Namespace).Create(
			context.TODO(), builder.Definition, metaV1.CreateOptions{})
	}

	return builder, err
}

// Delete removes the claim.
func (builder *Builder) Delete() error {
	if !builder.Exists() {
		return nil
	}

	err := builder.apiClient.PersistentVolumeClaims(builder.Definition.Namespace).Delete(
		context.TODO(), builder.Definition.Name, metaV1.DeleteOptions{})
	if err != nil {
		return err
	}

	builder.Object = nil

	return nil
}

// Exists checks whether the claim exists.
func (builder *Builder) Exists() bool {
	var err error
	builder.Object, err = builder.apiClient.PersistentVolumeClaims(builder.Definition.Namespace).Get(
		context.TODO(), builder.Definition.Name, metaV1.GetOptions{})

	return err == nil
}

// IsBound reports whether the claim is bound.
func (builder *Builder) IsBound() bool {
	return builder.Exists() && builder.Object != nil && builder.Object.Status.Phase == v1.ClaimBound
}

// CountInPhase returns the number of claims of the namespace in phase. Claims being deleted are not counted.
func CountInPhase(ctx context.Context, apiClient *clients.Settings, nsname string, phase v1.PersistentVolumeClaimPhase) (
	int, error) {
	claims, err := apiClient.PersistentVolumeClaims(nsname).List(ctx, metaV1.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list pvcs in namespace %s: %w", nsname, err)
	}

	count := 0

	for _, claim := range claims.Items {
		if claim.DeletionTimestamp == nil && claim.Status.Phase == phase {
			count++
		}
	}

	return count, nil
}

// Count returns the number of claims of the namespace regardless of their phase.
func Count(ctx context.Context, apiClient *clients.Settings, nsname string) (int, error) {
	claims, err := apiClient.PersistentVolumeClaims(nsname).List(ctx, metaV1.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list pvcs in namespace %s: %w", nsname, err)
	}

	return len(claims.Items), nil
}
