package assembler

import (
	"time"

	"pagefeed/internal/domain/entity"

	"github.com/beevik/etree"
)

// Passthrough re-emits a native feed document with channel-level overrides
// applied: title, description, build time, generator and the self link.
// Items beyond limit are dropped from the end; everything else, including
// foreign namespaced elements, is preserved verbatim.
//
// Restriction: element lookup is by tag name, so a non-namespaced foreign
// element that shares one of the five rewritten names is rewritten like the
// native one.
func (a *Assembler) Passthrough(original []byte, env entity.FeedEnvelope, limit int) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(original); err != nil {
		return nil, entity.NewError(entity.KindParseFailure, env.SelfLink, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, entity.NewError(entity.KindParseFailure, env.SelfLink, nil)
	}

	switch root.Tag {
	case "rss":
		channel := root.SelectElement("channel")
		if channel == nil {
			return nil, entity.NewError(entity.KindParseFailure, env.SelfLink, nil)
		}
		a.overrideRSS(root, channel, env)
		trimChildren(channel, "item", limit)
	case "feed":
		a.overrideAtom(root, env)
		trimChildren(root, "entry", limit)
	default:
		return nil, entity.NewError(entity.KindParseFailure, env.SelfLink, nil)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func (a *Assembler) overrideRSS(root, channel *etree.Element, env entity.FeedEnvelope) {
	if env.Title != "" {
		setChildText(channel, "title", env.Title)
	}
	if env.Description != "" {
		setChildText(channel, "description", env.Description)
	}
	setChildText(channel, "lastBuildDate", env.BuildTime.Format(time.RFC1123Z))
	if env.Generator != "" {
		setChildText(channel, "generator", env.Generator)
	}
	if env.SelfLink != "" {
		setSelfLink(root, channel, env.SelfLink, entity.MIMERSS)
	}
}

func (a *Assembler) overrideAtom(feed *etree.Element, env entity.FeedEnvelope) {
	if env.Title != "" {
		setChildText(feed, "title", env.Title)
	}
	if env.Description != "" {
		setChildText(feed, "subtitle", env.Description)
	}
	setChildText(feed, "updated", env.BuildTime.Format(time.RFC3339))
	if env.Generator != "" {
		setChildText(feed, "generator", env.Generator)
	}
	if env.SelfLink != "" {
		for _, link := range feed.SelectElements("link") {
			if link.SelectAttrValue("rel", "") == "self" {
				link.CreateAttr("href", env.SelfLink)
				return
			}
		}
		link := feed.CreateElement("link")
		link.CreateAttr("rel", "self")
		link.CreateAttr("href", env.SelfLink)
	}
}

// setChildText replaces the text of the named child, creating the child when
// the document lacks one.
func setChildText(parent *etree.Element, tag, text string) {
	child := parent.SelectElement(tag)
	if child == nil {
		child = parent.CreateElement(tag)
	}
	child.SetText(text)
}

// setSelfLink rewrites the atom:link rel=self element of an RSS channel,
// creating it (and the namespace declaration) when absent.
func setSelfLink(root, channel *etree.Element, href, mime string) {
	for _, child := range channel.ChildElements() {
		if child.Tag == "link" && child.Space == "atom" && child.SelectAttrValue("rel", "") == "self" {
			child.CreateAttr("href", href)
			return
		}
	}
	if root.SelectAttr("xmlns:atom") == nil {
		root.CreateAttr("xmlns:atom", nsAtom)
	}
	link := channel.CreateElement("atom:link")
	link.CreateAttr("href", href)
	link.CreateAttr("rel", "self")
	link.CreateAttr("type", mime)
}

// trimChildren removes the named children past limit, from the end.
func trimChildren(parent *etree.Element, tag string, limit int) {
	if limit <= 0 {
		return
	}
	children := parent.SelectElements(tag)
	for i := len(children) - 1; i >= limit; i-- {
		parent.RemoveChild(children[i])
	}
}
