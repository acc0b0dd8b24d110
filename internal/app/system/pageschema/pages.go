package pageschema

import "fmt"

func text(name, label string) Field     { return Field{Name: name, Label: label, Kind: KindText} }
func area(name, label string) Field     { return Field{Name: name, Label: label, Kind: KindTextArea} }
func rich(name, label string) Field     { return Field{Name: name, Label: label, Kind: KindRichText} }
func link(name, label string) Field     { return Field{Name: name, Label: label, Kind: KindURL} }
func image(name, label string) Field    { return Field{Name: name, Label: label, Kind: KindImage} }
func icon(name, label string) Field     { return Field{Name: name, Label: label, Kind: KindSVG} }
func checkbox(name, label string) Field { return Field{Name: name, Label: label, Kind: KindBool} }

func required(f Field) Field {
	f.Required = true
	return f
}

func hint(f Field, help string) Field {
	f.Help = help
	return f
}

// single builds the one form of a single-form page.
func single(slug, title string, sections ...Section) *Form {
	return &Form{
		Key:            slug,
		Page:           slug,
		Title:          title,
		Endpoint:       fmt.Sprintf("/admin/%s-page-settings/update", slug),
		SuccessMessage: title + " settings updated successfully",
		Sections:       sections,
	}
}

// grouped builds one of several forms on a page.
func grouped(slug, group, title string, sections ...Section) *Form {
	return &Form{
		Key:            slug + "." + group,
		Page:           slug,
		Group:          group,
		Title:          title,
		Endpoint:       fmt.Sprintf("/admin/%s-page-settings/update-%s", slug, group),
		SuccessMessage: title + " updated successfully",
		Sections:       sections,
	}
}

func page(slug, title string, forms ...*Form) *Page {
	return &Page{
		Slug:  slug,
		Title: title,
		Path:  fmt.Sprintf("/admin/%s-page-settings", slug),
		Forms: forms,
	}
}

func videoList(name, label string) List {
	return List{
		Name:      name,
		Label:     label,
		ItemLabel: "Video",
		Fields: []Field{
			text("title", "Title"),
			link("thumbnail", "Thumbnail URL"),
		},
		Video: true,
	}
}

var pages = []*Page{
	aboutMePage(),
	page("blogs", "Blogs Page", single("blogs", "Blogs page",
		Section{Title: "Page", Fields: []Field{text("page_title", "Page Title")}},
		Section{Title: "Banner", Fields: []Field{
			text("banner_title", "Banner Title"),
			image("banner_vector_right", "Banner Vector (Right)"),
			image("banner_vector_left", "Banner Vector (Left)"),
		}},
		Section{Title: "Sections", Fields: []Field{
			text("all_blogs_section_title", "All Blogs Section Title"),
			text("featured_blogs_title", "Featured Blogs Title"),
		}},
	)),
	page("books", "Books Page", single("books", "Books page",
		Section{Title: "Page", Fields: []Field{text("page_title", "Page Title")}},
		Section{Title: "Banner", Fields: []Field{
			image("banner_pattern_image", "Banner Pattern Image"),
			image("book_cover_image", "Book Cover Image"),
			text("banner_title", "Banner Title"),
			area("banner_description", "Banner Description"),
			text("banner_price", "Price Text"),
			text("banner_button_text", "Button Text"),
		}},
		Section{Title: "Highlights", Fields: []Field{
			text("highlights_section_title", "Highlights Section Title"),
		}},
		Section{Title: "Summary", Fields: []Field{
			text("summary_section_title", "Summary Section Title"),
			rich("summary_description", "Summary Description"),
			area("summary_fallback_text", "Summary Fallback Text"),
		}},
		Section{Title: "Review", Fields: []Field{
			text("review_section_title", "Review Section Title"),
			area("review_default_text", "Default Review Text"),
			text("review_default_author_name", "Default Author Name"),
			text("review_default_author_title", "Default Author Title"),
			text("review_default_author_company", "Default Author Company"),
		}},
		Section{Title: "Recommended Books", Fields: []Field{
			text("recommended_books_title", "Recommended Books Title"),
			text("recommended_books_subtitle", "Recommended Books Subtitle"),
			area("recommended_books_description", "Recommended Books Description"),
		}},
	)),
	page("donation", "Donation Page", single("donation", "Donation page",
		Section{Title: "Page", Fields: []Field{text("page_title", "Page Title")}},
		Section{Title: "Banner", Fields: []Field{
			area("banner_quote", "Banner Quote"),
			text("banner_subtitle", "Banner Subtitle"),
			hint(image("banner_default_image", "Banner Default Image"), "Shown when the campaign has no image."),
		}},
		Section{Title: "Donate Section", Fields: []Field{
			text("donate_section_title", "Section Title"),
			area("donate_section_description", "Section Description"),
		}},
	)),
	page("entrepreneurship", "Entrepreneurship Page", single("entrepreneurship", "Entrepreneurship page",
		Section{Title: "Page", Fields: []Field{text("page_title", "Page Title")}},
		Section{Title: "Banner", Fields: []Field{
			area("banner_quote", "Banner Quote"),
			text("banner_quote_label", "Quote Label"),
			image("banner_image", "Banner Image"),
		}},
		Section{
			Title:  "Quotes",
			Fields: []Field{text("quotes_section_title", "Quotes Section Title")},
			Lists: []List{{
				Name:      "quotes",
				Label:     "Quotes",
				ItemLabel: "Quote",
				Fields: []Field{
					area("content", "Quote"),
					text("author", "Author"),
					image("image", "Image"),
					checkbox("is_featured", "Featured"),
				},
			}},
		},
		Section{
			Title: "Innovation",
			Fields: []Field{
				text("innovation_section_title", "Innovation Section Title"),
				area("innovation_section_subtitle", "Innovation Section Subtitle"),
			},
			Lists: []List{{
				Name:      "innovations",
				Label:     "Innovations",
				ItemLabel: "Innovation",
				Fields: []Field{
					text("title", "Title"),
					text("description", "Short Description"),
					area("long_description", "Long Description"),
					image("image", "Image"),
					checkbox("is_featured", "Featured"),
				},
			}},
		},
		Section{Title: "Events & Blogs", Fields: []Field{
			text("events_section_title", "Events Section Title"),
			text("events_button_text", "Events Button Text"),
			text("blogs_section_title", "Blogs Section Title"),
			text("blogs_button_text", "Blogs Button Text"),
			text("blogs_show_less_text", "Blogs Show Less Text"),
		}},
	)),
	page("events", "Events Page", single("events", "Events page",
		Section{Title: "Page", Fields: []Field{text("page_title", "Page Title")}},
		Section{Title: "Banner", Fields: []Field{
			text("banner_title", "Banner Title"),
			image("banner_vector_image", "Banner Vector Image"),
			image("banner_bottom_vector", "Banner Bottom Vector"),
		}},
		Section{
			Title:       "Activities",
			Description: "4 images",
			Fields: []Field{
				text("activities_section_title", "Activities Section Title"),
				area("activities_section_description", "Activities Section Description"),
				image("activities_image_1", "Activity Image 1"),
				image("activities_image_2", "Activity Image 2"),
				image("activities_image_3", "Activity Image 3"),
				image("activities_image_4", "Activity Image 4"),
			},
		},
		Section{
			Title:  "Events",
			Fields: []Field{text("events_section_title", "Events Section Title")},
			Lists: []List{{
				Name:      "year_filter_options",
				Label:     "Year Filter Options",
				ItemLabel: "Year",
				Fields:    []Field{text("value", "Year")},
			}},
		},
		Section{
			Title:       "Default Event Images",
			Description: "5 images, used when an event has no image",
			Fields: []Field{
				image("default_event_image_1", "Default Event Image 1"),
				image("default_event_image_2", "Default Event Image 2"),
				image("default_event_image_3", "Default Event Image 3"),
				image("default_event_image_4", "Default Event Image 4"),
				image("default_event_image_5", "Default Event Image 5"),
			},
		},
	)),
	page("life-events", "Life Events Page", single("life-events", "Life Events page",
		Section{Title: "Page", Fields: []Field{text("page_title", "Page Title")}},
		Section{Title: "Banner", Fields: []Field{
			text("banner_title", "Banner Title"),
			text("banner_subtitle", "Banner Subtitle"),
			image("banner_image", "Banner Image"),
		}},
		Section{Title: "Timeline", Fields: []Field{
			text("timeline_section_title", "Timeline Section Title"),
			text("timeline_section_subtitle", "Timeline Section Subtitle"),
		}},
	)),
	page("technology", "Technology Page", single("technology", "Technology page",
		Section{Title: "Page", Fields: []Field{text("page_title", "Page Title")}},
		Section{Title: "Banner", Fields: []Field{
			text("banner_title", "Banner Title"),
			area("banner_subtitle", "Banner Subtitle"),
			image("banner_image", "Banner Image"),
			area("banner_description", "Banner Description"),
		}},
		Section{Title: "Cyber Security", Fields: []Field{
			text("cybersecurity_title", "Title"),
			area("cybersecurity_description", "Description"),
			area("cybersecurity_additional_description", "Additional Description"),
			image("cybersecurity_image", "Image"),
		}},
		Section{Title: "Contribution", Fields: []Field{
			text("contribution_title", "Title"),
			area("contribution_description", "Description"),
			image("contribution_image", "Image"),
		}},
		Section{Title: "Tools, Certificates & Blogs", Fields: []Field{
			text("tools_title", "Tools Title"),
			area("tools_description", "Tools Description"),
			text("certificates_title", "Certificates Title"),
			area("certificates_description", "Certificates Description"),
			text("blogs_title", "Blogs Title"),
		}},
		Section{
			Title:       "Tech Stack Icons",
			Description: "SVG icons for the tech stack section",
			Fields: []Field{
				text("section_title", "Section Title"),
				area("section_description", "Section Description"),
				icon("android_icon_svg", "Android"),
				icon("cursor_icon_svg", "Cursor"),
				icon("github_icon_svg", "GitHub"),
				icon("nextjs_icon_svg", "Next.js"),
				icon("tailwind_icon_svg", "Tailwind"),
				icon("react_icon_svg", "React"),
				icon("vercel_icon_svg", "Vercel"),
				icon("laravel_icon_svg", "Laravel"),
				icon("google_cloud_icon_svg", "Google Cloud"),
			},
		},
	)),
	page("videos", "Videos Page", single("videos", "Videos page",
		Section{Title: "Page", Fields: []Field{text("page_title", "Page Title")}},
		Section{
			Title: "Banner",
			Fields: []Field{
				text("banner_title", "Banner Title"),
				area("banner_subtitle", "Banner Subtitle"),
				area("banner_description", "Banner Description"),
				image("banner_image", "Banner Image"),
			},
			Lists: []List{videoList("banner_videos", "Banner Videos")},
		},
		Section{
			Title: "All Videos",
			Fields: []Field{
				text("all_videos_title", "Section Title"),
				area("all_videos_description", "Section Description"),
			},
			Lists: []List{videoList("all_videos", "All Videos")},
		},
		Section{
			Title: "Short Videos",
			Fields: []Field{
				text("short_videos_title", "Section Title"),
				area("short_videos_description", "Section Description"),
			},
			Lists: []List{videoList("short_videos", "Short Videos")},
		},
	)),
}

func aboutMePage() *Page {
	const slug = "about-me"
	p := page(slug, "About Me Page",
		grouped(slug, "banner", "Banner settings",
			Section{Title: "Banner", Fields: []Field{
				text("label", "Label"),
				area("title", "Title"),
				image("banner_image", "Banner Image"),
				image("video_thumbnail", "Video Thumbnail"),
				link("video_url", "Video URL"),
			}},
		),
		grouped(slug, "report", "Report settings",
			Section{Title: "Report", Fields: append(
				[]Field{area("description", "Description")},
				statFields(7)...,
			)},
		),
		grouped(slug, "corporate", "Corporate journey settings",
			Section{Title: "Corporate Journey", Fields: []Field{
				text("title", "Title"),
				text("philosophy_title", "Philosophy Title"),
				image("philosophy_image", "Philosophy Image"),
				image("background_image", "Background Image"),
				text("logic_theory_title", "Logic Theory Title"),
				area("logic_theory_content_1", "Logic Theory Content 1"),
				area("logic_theory_content_2", "Logic Theory Content 2"),
				text("logic_1_title", "Logic #1 Title"),
				area("logic_1_content", "Logic #1 Content"),
			}},
		),
		grouped(slug, "associates", "Associates settings",
			Section{Title: "Associates", Fields: []Field{
				text("title", "Title"),
				area("description", "Description"),
				image("background_image", "Background Image"),
			}},
		),
		grouped(slug, "awards", "Awards settings",
			Section{Title: "Awards", Fields: []Field{
				text("section_title", "Section Title"),
				text("section_subtitle", "Section Subtitle"),
			}},
		),
		grouped(slug, "travel", "Travel settings",
			Section{Title: "Travel", Fields: []Field{
				text("section_title", "Section Title"),
				text("section_subtitle", "Section Subtitle"),
				image("map_image", "Map Image"),
			}},
		),
	)
	p.Entities = []string{"about-sections", "awards", "corporate-journey", "associates"}
	return p
}

func statFields(n int) []Field {
	var out []Field
	for i := 1; i <= n; i++ {
		out = append(out,
			text(fmt.Sprintf("stat_%d_value", i), fmt.Sprintf("Stat %d Value", i)),
			text(fmt.Sprintf("stat_%d_label", i), fmt.Sprintf("Stat %d Label", i)),
		)
	}
	return out
}

var entityKinds = []*EntityKind{
	{
		Kind:     "about-sections",
		Title:    "About Sections",
		Singular: "section",
		Fields: []Field{
			{Name: "section_type", Label: "Section Type", Kind: KindSelect, Options: []string{"story", "impact", "travel"}, Required: true},
			required(text("title", "Title")),
			rich("content", "Content"),
			image("image", "Image"),
		},
		ConfirmPrompt:  "Are you sure you want to delete this section?",
		CreatedMessage: "Section created successfully",
		UpdatedMessage: "Section updated successfully",
		DeletedMessage: "Section deleted successfully",
	},
	{
		Kind:     "awards",
		Title:    "Awards",
		Singular: "award",
		Fields: []Field{
			required(text("title", "Title")),
			text("organization", "Organization"),
			text("award_date", "Date"),
		},
		ConfirmPrompt:  "Are you sure you want to delete this award?",
		CreatedMessage: "Award created successfully",
		UpdatedMessage: "Award updated successfully",
		DeletedMessage: "Award deleted successfully",
	},
	{
		Kind:     "corporate-journey",
		Title:    "Corporate Journey",
		Singular: "journey item",
		Fields: []Field{
			text("step_number", "Step Number"),
			required(text("title", "Title")),
			text("company", "Company"),
			area("description", "Description"),
			image("icon_image", "Icon"),
		},
		ConfirmPrompt:  "Are you sure you want to delete this journey item?",
		CreatedMessage: "Journey item created successfully",
		UpdatedMessage: "Journey item updated successfully",
		DeletedMessage: "Journey item deleted successfully",
	},
	{
		Kind:     "associates",
		Title:    "Associates",
		Singular: "associate",
		Fields: []Field{
			required(text("name", "Name")),
			image("logo_image", "Logo"),
		},
		ConfirmPrompt:  "Are you sure you want to delete this associate?",
		CreatedMessage: "Associate created successfully",
		UpdatedMessage: "Associate updated successfully",
		DeletedMessage: "Associate deleted successfully",
	},
}
