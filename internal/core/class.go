package core

import "sync"

// ClassData is the payload of a class object (spec §3.3 "Class"). A class
// is itself an Object whose Class field points at the metaclass (or, for
// the metaclass itself, at itself).
type ClassData struct {
	Name   string
	Parent *Object // parent class, nil for Object
	Home   *Object // home namespace this class is registered under

	mu              sync.RWMutex
	classVars       *Object // Dictionary instance
	classMethods    map[string]Cell
	instanceMethods map[string]Cell
}

// NewClassData creates an empty class payload. classVars should be a
// freshly constructed Dictionary object.
func NewClassData(name string, parent *Object, home *Object, classVars *Object) *ClassData {
	return &ClassData{
		Name:            name,
		Parent:          parent,
		Home:            home,
		classVars:       classVars,
		classMethods:    make(map[string]Cell),
		instanceMethods: make(map[string]Cell),
	}
}

func (c *ClassData) KindName() string { return "class" }

func (c *ClassData) Trace(visit func(*Cell)) {
	if c.Parent != nil {
		v := FromObject(c.Parent)
		visit(&v)
	}
	if c.Home != nil {
		v := FromObject(c.Home)
		visit(&v)
	}
	if c.classVars != nil {
		v := FromObject(c.classVars)
		visit(&v)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.classMethods {
		visit(&m)
	}
	for _, m := range c.instanceMethods {
		visit(&m)
	}
}

func (c *ClassData) Finalize() {}

// ClassVars returns the class-variable dictionary object.
func (c *ClassData) ClassVars() *Object { return c.classVars }

// SetClassVars attaches a class-variable dictionary to a class that was
// bootstrapped without one (see internal/builtin's classVarsOf: the
// Dictionary class itself doesn't exist yet when earlier classes in the
// bootstrap order are constructed).
func (c *ClassData) SetClassVars(classVars *Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classVars = classVars
}

// AddInstanceMethod installs or replaces selector on the instance-method
// table (spec §6: "class-method and instance-method addition/removal").
func (c *ClassData) AddInstanceMethod(selector string, m Cell) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instanceMethods[selector] = m
}

// RemoveInstanceMethod deletes selector from the instance-method table.
func (c *ClassData) RemoveInstanceMethod(selector string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.instanceMethods, selector)
}

// AddClassMethod installs or replaces selector on the class-method table.
func (c *ClassData) AddClassMethod(selector string, m Cell) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classMethods[selector] = m
}

// RemoveClassMethod deletes selector from the class-method table.
func (c *ClassData) RemoveClassMethod(selector string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.classMethods, selector)
}

func (c *ClassData) lookupInstance(selector string) (Cell, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.instanceMethods[selector]
	return m, ok
}

func (c *ClassData) lookupClassMethod(selector string) (Cell, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.classMethods[selector]
	return m, ok
}

// OwnInstanceMethod looks up selector in class's own instance-method
// table without walking the parent chain, for the interpreter's
// "method pointer" literal (spec §4.G).
func OwnInstanceMethod(class *Object, selector string) (Cell, bool) {
	cd := classData(class)
	if cd == nil {
		return Cell{}, false
	}
	return cd.lookupInstance(selector)
}

// ClassName returns o's declared name, or "?" if o is not a class.
func ClassName(o *Object) string {
	if cd := classData(o); cd != nil {
		return cd.Name
	}
	return "?"
}

// classData extracts the ClassData payload from a class object, or nil if
// o is not a class.
func classData(o *Object) *ClassData {
	if o == nil {
		return nil
	}
	cd, _ := o.Payload.(*ClassData)
	return cd
}

// IsSubclassOf walks the parent chain looking for target (spec §4.C
// "subclass test... walks the parent chain"; testable property §8.3:
// every class is a subclass of Object).
func IsSubclassOf(class, target *Object) bool {
	for c := class; c != nil; c = classData(c).Parent {
		if c == target {
			return true
		}
		if classData(c) == nil {
			break
		}
	}
	return false
}
