package core

// InstanceData is a user instance: a dictionary of fields plus the
// reserved `__instanceof__` binding naming its class (spec §3.3 "User
// instance", Glossary "User class"). Object.Class for every instance
// constructed this way is the built-in User class; the *declared* class
// seen by user code is this payload's Class field, resolved via
// ResolvedClass (spec §4.C).
type InstanceData struct {
	Class  *Object // the user class this is __instanceof__
	Fields *Object // Dictionary object holding the instance's other fields
}

func (i *InstanceData) KindName() string { return "instance" }

func (i *InstanceData) Trace(visit func(*Cell)) {
	if i.Class != nil {
		v := FromObject(i.Class)
		visit(&v)
	}
	if i.Fields != nil {
		v := FromObject(i.Fields)
		visit(&v)
	}
}

func (i *InstanceData) Finalize() {}

// NewInstance constructs a user instance of class, backed by a fresh
// Dictionary for its fields.
func (h *Heap) NewInstance(userClass, class, fields *Object) *Object {
	return h.NewObject(userClass, &InstanceData{Class: class, Fields: fields}, 0)
}

func instanceData(o *Object) *InstanceData {
	if o == nil {
		return nil
	}
	id, _ := o.Payload.(*InstanceData)
	return id
}

// InstanceFields returns o's field Dictionary, or nil if o is not a user
// instance.
func InstanceFields(o *Object) *Object {
	if id := instanceData(o); id != nil {
		return id.Fields
	}
	return nil
}

// ResolvedClass returns the class user code should see for o: the
// payload's own Class field for a User instance, or o.Class itself for
// every other kind (spec §4.C "class-of (raw = the declared class;
// resolved = the user class if the raw class is the user-instance
// class...)").
func ResolvedClass(o *Object) *Object {
	if o == nil {
		return nil
	}
	if id := instanceData(o); id != nil {
		return id.Class
	}
	return o.Class
}
