package clients

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

func TestProbe(t *testing.T) {
	testCases := []struct {
		apiClient *Settings
		expected  bool
	}{
		{
			apiClient: GetTestClients(TestClientParams{}),
			expected:  true,
		},
		{
			apiClient: nil,
			expected:  false,
		},
		{
			apiClient: &Settings{KubeconfigPath: "empty"},
			expected:  false,
		},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, Probe(testCase.apiClient))
	}
}

func TestLoadMissingKubeconfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing-kubeconfig")

	settings, err := Load(missing)
	assert.NotNil(t, err)
	assert.Nil(t, settings)
	assert.Nil(t, New(missing))
}

func TestLoadValidKubeconfig(t *testing.T) {
	kubeconfig := filepath.Join(t.TempDir(), "kubeconfig")
	err := os.WriteFile(kubeconfig, []byte(`apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://127.0.0.1:6443
  name: test
contexts:
- context:
    cluster: test
    user: admin
  name: admin
current-context: admin
users:
- name: admin
  user:
    token: fake
`), 0600)
	assert.Nil(t, err)

	settings, err := Load(kubeconfig)

	// Building the controller-runtime client needs API discovery, which fails without a server.
	if err == nil {
		assert.Equal(t, kubeconfig, settings.KubeconfigPath)
		assert.NotNil(t, settings.K8sClient)
	}
}

func TestGetTestClients(t *testing.T) {
	settings := GetTestClients(TestClientParams{
		KubeconfigPath: "/tmp/kubeconfig",
		K8sMockObjects: []runtime.Object{
			&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "openshift-storage"}},
		},
	})

	assert.Equal(t, "/tmp/kubeconfig", settings.KubeconfigPath)
	assert.NotNil(t, settings.Dynamic)
	assert.NotNil(t, settings.Client)

	_, err := settings.Namespaces().Get(context.TODO(), "openshift-storage", metav1.GetOptions{})
	assert.Nil(t, err)
}
