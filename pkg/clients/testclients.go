package clients

import (
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	runtimeClient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

// TestClientParams holds the objects preloaded into the fake clients returned by GetTestClients.
type TestClientParams struct {
	// KubeconfigPath is copied to the returned settings.
	KubeconfigPath string
	// K8sMockObjects are served by the typed clientset.
	K8sMockObjects []runtime.Object
	// DynamicObjects are unstructured objects served by the dynamic client.
	DynamicObjects []runtime.Object
	// GVRToListKind maps the resources listed through the dynamic client to their list kind.
	GVRToListKind map[schema.GroupVersionResource]string
	// RuntimeObjects are served by the controller-runtime client.
	RuntimeObjects []runtimeClient.Object
}

// GetTestClients returns a *Settings backed by fake clients. Used by unit tests.
func GetTestClients(params TestClientParams) *Settings {
	k8sClient := k8sfake.NewSimpleClientset(params.K8sMockObjects...)

	listKinds := map[schema.GroupVersionResource]string{}
	for gvr, listKind := range params.GVRToListKind {
		listKinds[gvr] = listKind
	}

	return &Settings{
		KubeconfigPath:          params.KubeconfigPath,
		K8sClient:               k8sClient,
		CoreV1Interface:         k8sClient.CoreV1(),
		AppsV1Interface:         k8sClient.AppsV1(),
		CoordinationV1Interface: k8sClient.CoordinationV1(),
		Dynamic: dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
			runtime.NewScheme(), listKinds, params.DynamicObjects...),
		Client: fake.NewClientBuilder().
			WithScheme(SetScheme()).
			WithObjects(params.RuntimeObjects...).
			Build(),
	}
}
