package dashboard

// EditSession is either NotEditing or Editing. At most one post is ever in
// edit mode because the controller holds a single EditSession.
type EditSession interface {
	isEditSession()
}

type NotEditing struct{}

// Editing holds the post being edited and the unsaved text.
type Editing struct {
	PostID string
	Buffer string
}

func (NotEditing) isEditSession() {}
func (Editing) isEditSession()    {}
