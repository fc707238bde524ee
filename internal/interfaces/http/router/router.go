// Package router assembles versioned API route groups on a gin engine.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// API is the /api/<version> tree. Public resources mount first; private
// ones mount behind the chain passed to Authenticate.
type API struct {
	version string
	auth    []gin.HandlerFunc
	public  []*Resource
	private []*Resource
}

func NewAPI(version string) *API {
	return &API{version: version}
}

func (a *API) Authenticate(chain ...gin.HandlerFunc) *API {
	a.auth = append(a.auth, chain...)
	return a
}

func (a *API) Public(res ...*Resource) *API {
	a.public = append(a.public, res...)
	return a
}

func (a *API) Private(res ...*Resource) *API {
	a.private = append(a.private, res...)
	return a
}

// Mount installs every resource on r. Call it once, after declaring the tree.
func (a *API) Mount(r gin.IRouter) {
	root := r.Group("/api/" + a.version)
	for _, res := range a.public {
		res.mount(root)
	}
	guarded := root.Group("", a.auth...)
	for _, res := range a.private {
		res.mount(guarded)
	}
}

// Resource is the set of routes under one path prefix. Guards run before
// every route of the resource and its nested resources.
type Resource struct {
	prefix string
	guards []gin.HandlerFunc
	routes []route
	nested []*Resource
}

type route struct {
	method string
	path   string
	chain  []gin.HandlerFunc
}

func NewResource(prefix string) *Resource {
	return &Resource{prefix: prefix}
}

func (res *Resource) Guard(chain ...gin.HandlerFunc) *Resource {
	res.guards = append(res.guards, chain...)
	return res
}

func (res *Resource) Handle(method, path string, chain ...gin.HandlerFunc) *Resource {
	res.routes = append(res.routes, route{method: method, path: path, chain: chain})
	return res
}

func (res *Resource) GET(path string, chain ...gin.HandlerFunc) *Resource {
	return res.Handle(http.MethodGet, path, chain...)
}

func (res *Resource) POST(path string, chain ...gin.HandlerFunc) *Resource {
	return res.Handle(http.MethodPost, path, chain...)
}

func (res *Resource) PUT(path string, chain ...gin.HandlerFunc) *Resource {
	return res.Handle(http.MethodPut, path, chain...)
}

// Nest returns a child resource under prefix, inheriting this resource's guards.
func (res *Resource) Nest(prefix string) *Resource {
	child := NewResource(prefix)
	res.nested = append(res.nested, child)
	return child
}

func (res *Resource) mount(parent gin.IRouter) {
	g := parent.Group(res.prefix, res.guards...)
	for _, rt := range res.routes {
		g.Handle(rt.method, rt.path, rt.chain...)
	}
	for _, child := range res.nested {
		child.mount(g)
	}
}
