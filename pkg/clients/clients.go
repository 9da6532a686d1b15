package clients

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	velerov1 "github.com/vmware-tanzu/velero/pkg/apis/velero/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	appsV1Client "k8s.io/client-go/kubernetes/typed/apps/v1"
	coordinationV1Client "k8s.io/client-go/kubernetes/typed/coordination/v1"
	coreV1Client "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clusterv1 "open-cluster-management.io/api/cluster/v1"
	clusterv1beta1 "open-cluster-management.io/api/cluster/v1beta1"
	runtimeClient "sigs.k8s.io/controller-runtime/pkg/client"
)

// probeTimeout bounds the cluster-info request used to decide whether a cluster is reachable.
const probeTimeout = 15 * time.Second

// Settings provides the struct to talk with relevant API of one cluster.
type Settings struct {
	KubeconfigPath string
	K8sClient      kubernetes.Interface
	coreV1Client.CoreV1Interface
	appsV1Client.AppsV1Interface
	coordinationV1Client.CoordinationV1Interface
	Dynamic dynamic.Interface
	Config  *rest.Config
	runtimeClient.Client
}

// New returns a *Settings with the given kubeconfig. KUBECONFIG is used when kubeconfig is empty, in-cluster
// config when both are empty. Nil is returned when the client cannot be built.
func New(kubeconfig string) *Settings {
	clientSet, err := Load(kubeconfig)
	if err != nil {
		glog.V(4).Infof("Failed to load kube client from %q: %v", kubeconfig, err)

		return nil
	}

	return clientSet
}

// Load is New returning the reason of a failure.
func Load(kubeconfig string) (*Settings, error) {
	var (
		config *rest.Config
		err    error
	)

	if kubeconfig == "" {
		kubeconfig = os.Getenv("KUBECONFIG")
	}

	if kubeconfig != "" {
		glog.V(4).Infof("Loading kube client config from path %q", kubeconfig)
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		glog.V(4).Infof("Using in-cluster kube client config")
		config, err = rest.InClusterConfig()
	}

	if err != nil {
		return nil, err
	}

	clientSet := &Settings{}

	clientSet.K8sClient, err = kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	clientSet.CoreV1Interface = clientSet.K8sClient.CoreV1()
	clientSet.AppsV1Interface = clientSet.K8sClient.AppsV1()
	clientSet.CoordinationV1Interface = clientSet.K8sClient.CoordinationV1()

	clientSet.Dynamic, err = dynamic.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	clientSet.Client, err = runtimeClient.New(config, runtimeClient.Options{
		Scheme: SetScheme(),
	})
	if err != nil {
		return nil, err
	}

	clientSet.Config = config
	clientSet.KubeconfigPath = kubeconfig

	return clientSet, nil
}

// SetScheme returns the scheme used by the controller-runtime client.
func SetScheme() *runtime.Scheme {
	crScheme := runtime.NewScheme()

	if err := scheme.AddToScheme(crScheme); err != nil {
		panic(err)
	}

	if err := clusterv1.AddToScheme(crScheme); err != nil {
		panic(err)
	}

	if err := clusterv1beta1.AddToScheme(crScheme); err != nil {
		panic(err)
	}

	if err := velerov1.AddToScheme(crScheme); err != nil {
		panic(err)
	}

	return crScheme
}

// Probe reports whether the cluster answers a cluster-info request. It never returns an error so callers can
// decide whether an unreachable cluster is fatal.
func Probe(apiClient *Settings) bool {
	if apiClient == nil {
		return false
	}

	discoveryClient, err := apiClient.discovery()
	if err != nil {
		glog.V(100).Infof("Cannot build discovery client for %q: %v", apiClient.KubeconfigPath, err)

		return false
	}

	version, err := discoveryClient.ServerVersion()
	if err != nil {
		glog.V(100).Infof("Cluster at %q is not reachable: %v", apiClient.KubeconfigPath, err)

		return false
	}

	glog.V(100).Infof("Cluster at %q is reachable, server version %s", apiClient.KubeconfigPath, version.GitVersion)

	return true
}

// ProbeContext is Probe with a deadline taken from ctx when it is shorter than the default probe timeout.
func ProbeContext(ctx context.Context, apiClient *Settings) bool {
	result := make(chan bool, 1)

	go func() {
		result <- Probe(apiClient)
	}()

	select {
	case reachable := <-result:
		return reachable
	case <-ctx.Done():
		return false
	}
}

func (settings *Settings) discovery() (discovery.ServerVersionInterface, error) {
	if settings.Config != nil {
		probeConfig := rest.CopyConfig(settings.Config)
		probeConfig.Timeout = probeTimeout

		return discovery.NewDiscoveryClientForConfig(probeConfig)
	}

	if settings.K8sClient != nil {
		return settings.K8sClient.Discovery(), nil
	}

	return nil, fmt.Errorf("settings have neither rest config nor kubernetes client")
}
